package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type careRelationshipRepository struct {
	BaseRepository
}

func NewCareRelationshipRepository(base BaseRepository) repository.CareRelationshipRepository {
	return &careRelationshipRepository{base}
}

const careRelationshipColumns = `l.id, l.patient_id, l.clinician_id, l.relationship_start, l.relationship_end,
	l.is_primary, l.notes, l.created_at, l.updated_at, l.deleted_at`

func (r *careRelationshipRepository) Create(ctx context.Context, rel *model.CareRelationship) error {
	query := `
		INSERT INTO care_relationships (patient_id, clinician_id, relationship_start, is_primary, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rel.PatientID,
		rel.ClinicianID,
		rel.RelationshipStart,
		rel.IsPrimary,
		rel.Notes,
	).Scan(&rel.ID, &rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create care relationship: %w", mapError(err))
	}
	return nil
}

func (r *careRelationshipRepository) GetByID(ctx context.Context, id int64) (*model.CareRelationship, error) {
	var rel model.CareRelationship
	query := `SELECT ` + careRelationshipColumns + ` FROM care_relationships l WHERE l.id = $1 AND l.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &rel, query, id); err != nil {
		return nil, mapError(err)
	}
	return &rel, nil
}

// ListForPatient returns the patient's non-deleted relationships, ended ones
// included, most recent first.
func (r *careRelationshipRepository) ListForPatient(ctx context.Context, patientID int64) ([]*model.CareRelationship, error) {
	query := `
		SELECT ` + careRelationshipColumns + `
		FROM care_relationships l
		JOIN clinicians c ON c.id = l.clinician_id
		WHERE l.patient_id = $1 AND l.deleted_at IS NULL AND c.deleted_at IS NULL
		ORDER BY l.relationship_start DESC, l.id DESC
	`
	var rels []*model.CareRelationship
	if err := r.db.SelectContext(ctx, &rels, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list care relationships: %w", err)
	}
	return rels, nil
}

func (r *careRelationshipRepository) End(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_relationships SET relationship_end = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND relationship_end IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("failed to end care relationship: %w", err)
	}
	return checkAffected(res)
}

func (r *careRelationshipRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE care_relationships SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete care relationship: %w", err)
	}
	return checkAffected(res)
}

func (r *careRelationshipRepository) HasActiveLink(ctx context.Context, clinicianID, patientID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM care_relationships l
			JOIN patients p ON p.id = l.patient_id
			JOIN clinicians c ON c.id = l.clinician_id
			WHERE l.clinician_id = $1 AND l.patient_id = $2 AND ` + activeLink + `
		)
	`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, clinicianID, patientID); err != nil {
		return false, fmt.Errorf("failed to check care relationship: %w", err)
	}
	return ok, nil
}
