package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

// activeCounts yields one row per clinician with at least one active link and
// the number of distinct patients behind those links.
const activeCounts = `
	SELECT l.clinician_id, COUNT(DISTINCT l.patient_id) AS patient_count
	FROM care_relationships l
	JOIN patients p ON p.id = l.patient_id
	JOIN clinicians c ON c.id = l.clinician_id
	WHERE ` + activeLink + `
	GROUP BY l.clinician_id`

type clinicianCountRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	PatientCount int    `db:"patient_count"`
}

// ClinicianPatientCounts left-joins the per-clinician counts onto the
// clinician set so clinicians without active links report zero.
func (r *reportRepository) ClinicianPatientCounts(ctx context.Context, filter repository.ClinicianFilter, page repository.Page) ([]model.ClinicianPatientCount, int, error) {
	w := clinicianWhere(filter)

	var (
		rows  []clinicianCountRow
		total int
	)
	err := r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM clinicians c` + w.String())
		if err := tx.GetContext(ctx, &total, countQuery, w.args...); err != nil {
			return err
		}

		listQuery := tx.Rebind(`
			SELECT c.id, c.name, COALESCE(ac.patient_count, 0) AS patient_count
			FROM clinicians c
			LEFT JOIN (` + activeCounts + `) ac ON ac.clinician_id = c.id` + w.String() + `
			ORDER BY c.name, c.id
			LIMIT ? OFFSET ?`)
		args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
		return tx.SelectContext(ctx, &rows, listQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count patients per clinician: %w", err)
	}

	counts := make([]model.ClinicianPatientCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, model.ClinicianPatientCount{
			Clinician:    model.ClinicianSummary{ID: row.ID, Name: row.Name},
			PatientCount: row.PatientCount,
		})
	}
	return counts, total, nil
}

type scheduledRow struct {
	ID              int64                 `db:"id"`
	Status          model.ProcedureStatus `db:"status"`
	ScheduledAt     time.Time             `db:"scheduled_at"`
	DurationMinutes *int                  `db:"duration_minutes"`
	PatientID       int64                 `db:"patient_id"`
	PatientName     string                `db:"patient_name"`
	PatientGender   model.Gender          `db:"patient_gender"`
	ClinicianID     int64                 `db:"clinician_id"`
	ClinicianName   string                `db:"clinician_name"`
}

func scheduledWhere(filter repository.ScheduledFilter) (*where, error) {
	w := &where{}
	w.add(`pr.deleted_at IS NULL`)
	w.add(`p.deleted_at IS NULL`)
	w.add(`c.deleted_at IS NULL`)
	w.add(`pr.procedure_type_id = ?`, filter.ProcedureTypeID)

	if len(filter.Statuses) > 0 {
		clause, args, err := sqlx.In(`pr.status IN (?)`, filter.Statuses)
		if err != nil {
			return nil, err
		}
		w.add(clause, args...)
	}
	// Date bounds compare the UTC calendar day of scheduled_at.
	if filter.DateFrom != nil {
		w.add(`pr.scheduled_at >= ?`, filter.DateFrom.Time)
	}
	if filter.DateTo != nil {
		w.add(`pr.scheduled_at < ?`, filter.DateTo.AddDate(0, 0, 1))
	}
	if filter.DepartmentID != nil {
		w.add(`c.department_id = ?`, *filter.DepartmentID)
	}
	if filter.ClinicianID != nil {
		w.add(`pr.clinician_id = ?`, *filter.ClinicianID)
	}
	return w, nil
}

func (r *reportRepository) ScheduledPatients(ctx context.Context, filter repository.ScheduledFilter, page repository.Page) ([]model.ScheduledPatient, int, error) {
	w, err := scheduledWhere(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build scheduled patients filter: %w", err)
	}

	from := `
		FROM procedures pr
		JOIN patients p ON p.id = pr.patient_id
		JOIN clinicians c ON c.id = pr.clinician_id`

	var (
		rows  []scheduledRow
		total int
	)
	err = r.WithTx(ctx, snapshot, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, tx.Rebind(`SELECT COUNT(*)`+from+w.String()), w.args...); err != nil {
			return err
		}

		listQuery := tx.Rebind(`
			SELECT pr.id, pr.status, pr.scheduled_at, pr.duration_minutes,
				p.id AS patient_id, p.name AS patient_name, p.gender AS patient_gender,
				c.id AS clinician_id, c.name AS clinician_name` + from + w.String() + `
			ORDER BY pr.scheduled_at, pr.id
			LIMIT ? OFFSET ?`)
		args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
		return tx.SelectContext(ctx, &rows, listQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scheduled patients: %w", err)
	}

	results := make([]model.ScheduledPatient, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.ScheduledPatient{
			Procedure: model.ScheduledProcedureSummary{
				ID:              row.ID,
				Status:          row.Status,
				ScheduledAt:     row.ScheduledAt,
				DurationMinutes: row.DurationMinutes,
			},
			Patient:   model.PatientSummary{ID: row.PatientID, Name: row.PatientName, Gender: row.PatientGender},
			Clinician: model.ClinicianSummary{ID: row.ClinicianID, Name: row.ClinicianName},
		})
	}
	return results, total, nil
}
