// Package report builds the read-only aggregate views: patients under active
// care per clinician, and the patients scheduled for a procedure type.
package report

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

const (
	MsgMustBeInteger   = "Must be an integer."
	MsgEnterNumber     = "Enter a number."
	MsgDateFormat      = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	MsgDateRange       = "date_from must be less than or equal to date_to."
	MsgRequired        = "This field is required."
	ClinicianIDParam   = "clinician_id"
	ClinicianParam     = "clinician"
	reportCounts       = "clinician_patient_counts"
	reportScheduled    = "scheduled_patients"
	resourceType       = "Procedure type"
	resourceDepartment = "Department"
)

type Service struct {
	departments repository.DepartmentRepository
	types       repository.ProcedureTypeRepository
	reports     repository.ReportRepository
	guard       *access.Guard
	metrics     *metrics.Metrics
}

func NewService(departments repository.DepartmentRepository, types repository.ProcedureTypeRepository,
	reports repository.ReportRepository, guard *access.Guard, m *metrics.Metrics) *Service {
	return &Service{
		departments: departments,
		types:       types,
		reports:     reports,
		guard:       guard,
		metrics:     m,
	}
}

// Param is a raw query-string value together with the name it arrived under,
// so that validation errors can be keyed by what the caller sent. Name is
// empty when the parameter was not sent at all.
type Param struct {
	Name  string
	Value string
}

func (p Param) present() bool {
	return strings.TrimSpace(p.Value) != ""
}

func (p Param) supplied() bool {
	return p.Name != "" || p.present()
}

// CountQuery selects the clinicians of the patient-count report.
type CountQuery struct {
	// DepartmentID restricts the report to one department when set.
	DepartmentID *int64
	// Clinician narrows an admin's report to one clinician. Ignored for clinicians.
	Clinician Param
}

type CountReport struct {
	Department *model.DepartmentSummary
	Results    []model.ClinicianPatientCount
	Total      int
}

// ClinicianPatientCounts counts the distinct patients under active care of
// each clinician in scope, ordered by clinician name then id. Clinicians
// always see exactly their own row.
func (s *Service) ClinicianPatientCounts(ctx context.Context, p *model.Principal, q CountQuery, page repository.Page) (*CountReport, error) {
	defer s.metrics.TimeReport(reportCounts)()

	if err := s.guard.RequireStaff(ctx, p, "report.clinician_patient_counts"); err != nil {
		return nil, err
	}

	report := &CountReport{}
	filter := repository.ClinicianFilter{DepartmentID: q.DepartmentID}

	if q.DepartmentID != nil {
		dept, err := s.departments.GetByID(ctx, *q.DepartmentID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, errors.NotFound(resourceDepartment)
			}
			return nil, fmt.Errorf("failed to get department: %w", err)
		}
		summary := dept.Summary()
		report.Department = &summary
	}

	if clinicianID, ok := p.ClinicianID(); ok {
		if q.DepartmentID != nil && p.Clinician.DepartmentID != *q.DepartmentID {
			return nil, s.guard.Deny(ctx, p, "report.clinician_patient_counts", "other_department")
		}
		filter.ClinicianID = &clinicianID
	} else if q.Clinician.supplied() {
		id, err := strconv.ParseInt(strings.TrimSpace(q.Clinician.Value), 10, 64)
		if err != nil {
			return nil, errors.Validation(paramName(q.Clinician, ClinicianIDParam), MsgMustBeInteger)
		}
		filter.ClinicianID = &id
	}

	results, total, err := s.reports.ClinicianPatientCounts(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients per clinician: %w", err)
	}
	report.Results = results
	report.Total = total
	return report, nil
}

// ScheduledQuery holds the raw filters of the scheduled-patients report.
type ScheduledQuery struct {
	ProcedureTypeID Param
	DateFrom        Param
	DateTo          Param
	DepartmentID    Param
	ClinicianID     Param
}

// ScheduledPatients lists the planned and scheduled procedures of one type
// with their patient and clinician, ordered by scheduled time then id.
// Field errors are reported before the procedure type is looked up.
func (s *Service) ScheduledPatients(ctx context.Context, p *model.Principal, q ScheduledQuery, page repository.Page) ([]model.ScheduledPatient, int, error) {
	defer s.metrics.TimeReport(reportScheduled)()

	if err := s.guard.RequireStaff(ctx, p, "report.scheduled_patients"); err != nil {
		return nil, 0, err
	}

	// A clinician's own scope always replaces any clinician override.
	clinicianID, isClinician := p.ClinicianID()
	if isClinician {
		q.ClinicianID = Param{}
	}

	fields := errors.FieldErrors{}
	filter := repository.ScheduledFilter{Statuses: model.ActiveStatuses}

	if !q.ProcedureTypeID.present() {
		fields.Add(paramName(q.ProcedureTypeID, "procedure_type_id"), MsgRequired)
	} else if id, err := strconv.ParseInt(strings.TrimSpace(q.ProcedureTypeID.Value), 10, 64); err != nil {
		fields.Add(paramName(q.ProcedureTypeID, "procedure_type_id"), MsgMustBeInteger)
	} else {
		filter.ProcedureTypeID = id
	}
	filter.DateFrom = parseDate(q.DateFrom, "date_from", fields)
	filter.DateTo = parseDate(q.DateTo, "date_to", fields)
	filter.DepartmentID = parseID(q.DepartmentID, "department_id", fields)
	filter.ClinicianID = parseID(q.ClinicianID, ClinicianIDParam, fields)
	if err := fields.Err(); err != nil {
		return nil, 0, err
	}

	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, 0, errors.NonField(MsgDateRange)
	}

	if _, err := s.types.GetByID(ctx, filter.ProcedureTypeID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, 0, errors.NotFound(resourceType)
		}
		return nil, 0, fmt.Errorf("failed to get procedure type: %w", err)
	}

	if isClinician {
		filter.ClinicianID = &clinicianID
	}

	results, total, err := s.reports.ScheduledPatients(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scheduled patients: %w", err)
	}
	return results, total, nil
}

func paramName(p Param, fallback string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallback
}

func parseDate(p Param, fallback string, fields errors.FieldErrors) *model.Date {
	if !p.present() {
		return nil
	}
	d, err := model.ParseDate(strings.TrimSpace(p.Value))
	if err != nil {
		fields.Add(paramName(p, fallback), MsgDateFormat)
		return nil
	}
	return &d
}

func parseID(p Param, fallback string, fields errors.FieldErrors) *int64 {
	if !p.present() {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
	if err != nil {
		fields.Add(paramName(p, fallback), MsgEnterNumber)
		return nil
	}
	return &id
}
