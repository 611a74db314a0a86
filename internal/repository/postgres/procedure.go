package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type procedureRepository struct {
	BaseRepository
}

func NewProcedureRepository(base BaseRepository) repository.ProcedureRepository {
	return &procedureRepository{base}
}

const procedureColumns = `id, patient_id, clinician_id, procedure_type_id, name, scheduled_at,
	duration_minutes, status, notes, created_at, updated_at, deleted_at`

const procedureViewSelect = `
	SELECT pr.id, pr.name, pr.scheduled_at, pr.duration_minutes, pr.status, pr.notes,
		pr.created_at, pr.updated_at,
		t.id AS type_id, t.name AS type_name,
		p.id AS patient_id, p.name AS patient_name,
		c.id AS clinician_id, c.name AS clinician_name
	FROM procedures pr
	JOIN procedure_types t ON t.id = pr.procedure_type_id
	JOIN patients p ON p.id = pr.patient_id
	JOIN clinicians c ON c.id = pr.clinician_id`

const procedureViewFrom = `
	FROM procedures pr
	JOIN patients p ON p.id = pr.patient_id
	JOIN clinicians c ON c.id = pr.clinician_id`

type procedureViewRow struct {
	ID              int64                 `db:"id"`
	Name            string                `db:"name"`
	ScheduledAt     time.Time             `db:"scheduled_at"`
	DurationMinutes *int                  `db:"duration_minutes"`
	Status          model.ProcedureStatus `db:"status"`
	Notes           string                `db:"notes"`
	CreatedAt       time.Time             `db:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at"`
	TypeID          int64                 `db:"type_id"`
	TypeName        string                `db:"type_name"`
	PatientID       int64                 `db:"patient_id"`
	PatientName     string                `db:"patient_name"`
	ClinicianID     int64                 `db:"clinician_id"`
	ClinicianName   string                `db:"clinician_name"`
}

func (row *procedureViewRow) view() *model.ProcedureView {
	return &model.ProcedureView{
		ID:              row.ID,
		ProcedureType:   model.ProcedureTypeSummary{ID: row.TypeID, Name: row.TypeName},
		Patient:         model.PatientSummary{ID: row.PatientID, Name: row.PatientName},
		Clinician:       model.ClinicianSummary{ID: row.ClinicianID, Name: row.ClinicianName},
		Name:            row.Name,
		ScheduledAt:     row.ScheduledAt,
		DurationMinutes: row.DurationMinutes,
		Status:          row.Status,
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (r *procedureRepository) Create(ctx context.Context, procedure *model.Procedure) error {
	query := `
		INSERT INTO procedures (
			patient_id, clinician_id, procedure_type_id, name,
			scheduled_at, duration_minutes, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		procedure.PatientID,
		procedure.ClinicianID,
		procedure.ProcedureTypeID,
		procedure.Name,
		procedure.ScheduledAt,
		procedure.DurationMinutes,
		procedure.Status,
		procedure.Notes,
	).Scan(&procedure.ID, &procedure.CreatedAt, &procedure.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create procedure: %w", mapError(err))
	}
	return nil
}

func (r *procedureRepository) GetByID(ctx context.Context, id int64) (*model.Procedure, error) {
	var procedure model.Procedure
	query := `SELECT ` + procedureColumns + ` FROM procedures WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &procedure, query, id); err != nil {
		return nil, mapError(err)
	}
	return &procedure, nil
}

func (r *procedureRepository) GetView(ctx context.Context, id int64) (*model.ProcedureView, error) {
	var row procedureViewRow
	query := procedureViewSelect + `
		WHERE pr.id = $1 AND pr.deleted_at IS NULL AND p.deleted_at IS NULL AND c.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError(err)
	}
	return row.view(), nil
}

func procedureWhere(filter repository.ProcedureFilter) *where {
	w := &where{}
	w.add(`pr.deleted_at IS NULL`)
	w.add(`p.deleted_at IS NULL`)
	w.add(`c.deleted_at IS NULL`)
	if filter.ClinicianID != nil {
		w.add(`pr.clinician_id = ?`, *filter.ClinicianID)
	}
	return w
}

// List orders newest schedule first.
func (r *procedureRepository) List(ctx context.Context, filter repository.ProcedureFilter, page repository.Page) ([]*model.ProcedureView, int, error) {
	w := procedureWhere(filter)

	var (
		rows  []procedureViewRow
		total int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		countQuery := tx.Rebind(`SELECT COUNT(*)` + procedureViewFrom + w.String())
		if err := tx.GetContext(ctx, &total, countQuery, w.args...); err != nil {
			return err
		}

		listQuery := tx.Rebind(procedureViewSelect + w.String() +
			` ORDER BY pr.scheduled_at DESC, pr.id DESC LIMIT ? OFFSET ?`)
		args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
		return tx.SelectContext(ctx, &rows, listQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list procedures: %w", err)
	}

	views := make([]*model.ProcedureView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].view())
	}
	return views, total, nil
}

func (r *procedureRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE procedures SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete procedure: %w", err)
	}
	return checkAffected(res)
}
