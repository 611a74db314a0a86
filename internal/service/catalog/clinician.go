package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const MsgClinicianUserTaken = "clinician with this user already exists."

// ListClinicians lists live clinicians ordered by name. A clinician only
// ever sees their own profile.
func (s *Service) ListClinicians(ctx context.Context, p *model.Principal, departmentID *int64, page repository.Page) ([]*model.Clinician, int, error) {
	if err := s.guard.RequireStaff(ctx, p, "clinician.list"); err != nil {
		return nil, 0, err
	}

	filter := repository.ClinicianFilter{DepartmentID: departmentID}
	if id, ok := p.ClinicianID(); ok {
		filter.ClinicianID = &id
	}

	clinicians, total, err := s.clinicians.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clinicians: %w", err)
	}
	return clinicians, total, nil
}

func (s *Service) GetClinician(ctx context.Context, p *model.Principal, id int64) (*model.Clinician, error) {
	if p == nil {
		return nil, errors.Unauthorized(access.MsgNotAuthenticated)
	}
	if own, ok := p.ClinicianID(); (ok && own != id) || p.Role() == model.RoleNone {
		return nil, s.guard.Hide(ctx, p, "clinician.get", "Clinician")
	}

	clinician, err := s.clinicians.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Clinician", "get clinician")
	}
	return clinician, nil
}

// CreateClinician attaches a clinician profile to an existing user.
func (s *Service) CreateClinician(ctx context.Context, p *model.Principal, req *model.CreateClinicianRequest) (*model.Clinician, error) {
	if err := s.guard.RequireAdmin(ctx, p, "clinician.create"); err != nil {
		return nil, err
	}

	fields := errors.FieldErrors{}
	_, err := s.users.GetByID(ctx, req.UserID)
	if err := checkRef(err, fields, "user_id", req.UserID); err != nil {
		return nil, err
	}
	_, err = s.departments.GetByID(ctx, req.DepartmentID)
	if err := checkRef(err, fields, "department_id", req.DepartmentID); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	clinician := &model.Clinician{
		UserID:       req.UserID,
		DepartmentID: req.DepartmentID,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := s.clinicians.Create(ctx, clinician); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrConflict):
			return nil, errors.Validation("user_id", MsgClinicianUserTaken)
		case stderrors.Is(err, repository.ErrProtected):
			return nil, errors.NonField("A referenced record no longer exists.")
		}
		return nil, fmt.Errorf("failed to create clinician: %w", err)
	}
	return clinician, nil
}

func (s *Service) DeleteClinician(ctx context.Context, p *model.Principal, id int64) error {
	if err := s.guard.RequireAdmin(ctx, p, "clinician.delete"); err != nil {
		return err
	}
	if err := s.clinicians.SoftDelete(ctx, id); err != nil {
		return notFound(err, "Clinician", "delete clinician")
	}
	return nil
}
