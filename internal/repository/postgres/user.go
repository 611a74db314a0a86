package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

const userColumns = `id, email, name, password_hash, is_active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.WithTx(ctx, nil, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, query,
			user.Email,
			user.Name,
			user.PasswordHash,
			user.IsActive,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}

		for _, group := range user.Groups {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_groups (user_id, group_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				user.ID, group,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) get(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		return nil, mapError(err)
	}

	if err := r.db.SelectContext(ctx, &user.Groups,
		`SELECT group_name FROM user_groups WHERE user_id = $1 ORDER BY group_name`, user.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to load user groups: %w", err)
	}
	return &user, nil
}
