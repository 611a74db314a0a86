package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type procedureTypeRepository struct {
	BaseRepository
}

func NewProcedureTypeRepository(base BaseRepository) repository.ProcedureTypeRepository {
	return &procedureTypeRepository{base}
}

const procedureTypeColumns = `id, name, code, default_duration_minutes, department_id, is_active, created_at, updated_at`

func (r *procedureTypeRepository) Create(ctx context.Context, pt *model.ProcedureType) error {
	query := `
		INSERT INTO procedure_types (name, code, default_duration_minutes, department_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		pt.Name,
		pt.Code,
		pt.DefaultDurationMinutes,
		pt.DepartmentID,
		pt.IsActive,
	).Scan(&pt.ID, &pt.CreatedAt, &pt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create procedure type: %w", mapError(err))
	}
	return nil
}

// GetByID returns retired types too; callers decide whether that matters.
func (r *procedureTypeRepository) GetByID(ctx context.Context, id int64) (*model.ProcedureType, error) {
	var pt model.ProcedureType
	query := `SELECT ` + procedureTypeColumns + ` FROM procedure_types WHERE id = $1`
	if err := r.db.GetContext(ctx, &pt, query, id); err != nil {
		return nil, mapError(err)
	}
	return &pt, nil
}

func (r *procedureTypeRepository) List(ctx context.Context, page repository.Page) ([]*model.ProcedureType, int, error) {
	var (
		types []*model.ProcedureType
		total int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM procedure_types`); err != nil {
			return err
		}
		return tx.SelectContext(ctx, &types,
			`SELECT `+procedureTypeColumns+` FROM procedure_types ORDER BY name, id LIMIT $1 OFFSET $2`,
			page.Limit, page.Offset,
		)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list procedure types: %w", err)
	}
	return types, total, nil
}

func (r *procedureTypeRepository) Retire(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE procedure_types SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to retire procedure type: %w", err)
	}
	return checkAffected(res)
}
