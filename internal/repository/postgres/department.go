package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type departmentRepository struct {
	BaseRepository
}

func NewDepartmentRepository(base BaseRepository) repository.DepartmentRepository {
	return &departmentRepository{base}
}

const departmentColumns = `id, name, description, is_active, created_at, updated_at`

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	query := `
		INSERT INTO departments (name, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, dept.Name, dept.Description, dept.IsActive).
		Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create department: %w", mapError(err))
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*model.Department, error) {
	var dept model.Department
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		return nil, mapError(err)
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context, page repository.Page) ([]*model.Department, int, error) {
	var (
		depts []*model.Department
		total int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM departments`); err != nil {
			return err
		}
		return tx.SelectContext(ctx, &depts,
			`SELECT `+departmentColumns+` FROM departments ORDER BY name, id LIMIT $1 OFFSET $2`,
			page.Limit, page.Offset,
		)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, total, nil
}

// Delete removes the department. Departments still referenced by clinicians,
// deleted or not, are protected.
func (r *departmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return checkAffected(res)
}
