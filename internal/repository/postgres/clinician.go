package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type clinicianRepository struct {
	BaseRepository
}

func NewClinicianRepository(base BaseRepository) repository.ClinicianRepository {
	return &clinicianRepository{base}
}

const clinicianColumns = `c.id, c.user_id, c.department_id, c.name, c.created_at, c.updated_at, c.deleted_at`

func (r *clinicianRepository) Create(ctx context.Context, clinician *model.Clinician) error {
	query := `
		INSERT INTO clinicians (user_id, department_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, clinician.UserID, clinician.DepartmentID, clinician.Name).
		Scan(&clinician.ID, &clinician.CreatedAt, &clinician.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create clinician: %w", mapError(err))
	}
	return nil
}

func (r *clinicianRepository) GetByID(ctx context.Context, id int64) (*model.Clinician, error) {
	return r.get(ctx, `c.id = $1`, id)
}

func (r *clinicianRepository) GetByUserID(ctx context.Context, userID int64) (*model.Clinician, error) {
	return r.get(ctx, `c.user_id = $1`, userID)
}

func (r *clinicianRepository) get(ctx context.Context, cond string, arg interface{}) (*model.Clinician, error) {
	var clinician model.Clinician
	query := `SELECT ` + clinicianColumns + ` FROM clinicians c WHERE ` + cond + ` AND c.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &clinician, query, arg); err != nil {
		return nil, mapError(err)
	}
	return &clinician, nil
}

func clinicianWhere(filter repository.ClinicianFilter) *where {
	w := &where{}
	w.add(`c.deleted_at IS NULL`)
	if filter.DepartmentID != nil {
		w.add(`c.department_id = ?`, *filter.DepartmentID)
	}
	if filter.ClinicianID != nil {
		w.add(`c.id = ?`, *filter.ClinicianID)
	}
	return w
}

func (r *clinicianRepository) List(ctx context.Context, filter repository.ClinicianFilter, page repository.Page) ([]*model.Clinician, int, error) {
	w := clinicianWhere(filter)

	var (
		clinicians []*model.Clinician
		total      int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM clinicians c` + w.String())
		if err := tx.GetContext(ctx, &total, countQuery, w.args...); err != nil {
			return err
		}

		listQuery := tx.Rebind(`SELECT ` + clinicianColumns + ` FROM clinicians c` + w.String() +
			` ORDER BY c.name, c.id LIMIT ? OFFSET ?`)
		args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
		return tx.SelectContext(ctx, &clinicians, listQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clinicians: %w", err)
	}
	return clinicians, total, nil
}

func (r *clinicianRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clinicians SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinician: %w", err)
	}
	return checkAffected(res)
}
