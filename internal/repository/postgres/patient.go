package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

const patientColumns = `p.id, p.name, p.gender, p.email, p.date_of_birth, p.user_id, p.created_at, p.updated_at, p.deleted_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (name, gender, email, date_of_birth, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		patient.Name,
		patient.Gender,
		patient.Email,
		patient.DateOfBirth,
		patient.UserID,
	).Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", mapError(err))
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	return r.get(ctx, `p.id = $1`, id)
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID int64) (*model.Patient, error) {
	return r.get(ctx, `p.user_id = $1`, userID)
}

func (r *patientRepository) get(ctx context.Context, cond string, arg interface{}) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients p WHERE ` + cond + ` AND p.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &patient, query, arg); err != nil {
		return nil, mapError(err)
	}
	return &patient, nil
}

func patientWhere(filter repository.PatientFilter) *where {
	w := &where{}
	w.add(`p.deleted_at IS NULL`)
	if filter.ActiveClinicianID != nil {
		w.add(`EXISTS (
			SELECT 1 FROM care_relationships l
			JOIN clinicians c ON c.id = l.clinician_id
			WHERE l.patient_id = p.id AND l.clinician_id = ? AND `+activeLink+`
		)`, *filter.ActiveClinicianID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add(`(p.name ILIKE ? OR p.email ILIKE ?)`, pattern, pattern)
	}
	return w
}

// List returns live patients ordered by name then id. The EXISTS form keeps a
// patient linked through several active relationships from appearing twice.
func (r *patientRepository) List(ctx context.Context, filter repository.PatientFilter, page repository.Page) ([]*model.Patient, int, error) {
	w := patientWhere(filter)

	var (
		patients []*model.Patient
		total    int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM patients p` + w.String())
		if err := tx.GetContext(ctx, &total, countQuery, w.args...); err != nil {
			return err
		}

		listQuery := tx.Rebind(`SELECT ` + patientColumns + ` FROM patients p` + w.String() +
			` ORDER BY p.name, p.id LIMIT ? OFFSET ?`)
		args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
		return tx.SelectContext(ctx, &patients, listQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, gender = $2, email = $3, date_of_birth = $4, user_id = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		patient.Name,
		patient.Gender,
		patient.Email,
		patient.DateOfBirth,
		patient.UserID,
		patient.ID,
	).Scan(&patient.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *patientRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE patients SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return checkAffected(res)
}
