package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const (
	MsgDepartmentNameTaken = "department with this name already exists."
	MsgDepartmentInUse     = "Cannot delete department because clinicians are still assigned to it."
)

func (s *Service) ListDepartments(ctx context.Context, p *model.Principal, page repository.Page) ([]*model.Department, int, error) {
	if err := s.guard.RequireStaff(ctx, p, "department.list"); err != nil {
		return nil, 0, err
	}

	depts, total, err := s.departments.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, total, nil
}

func (s *Service) GetDepartment(ctx context.Context, p *model.Principal, id int64) (*model.Department, error) {
	if err := s.guard.RequireStaff(ctx, p, "department.get"); err != nil {
		return nil, err
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Department", "get department")
	}
	return dept, nil
}

func (s *Service) CreateDepartment(ctx context.Context, p *model.Principal, req *model.CreateDepartmentRequest) (*model.Department, error) {
	if err := s.guard.RequireAdmin(ctx, p, "department.create"); err != nil {
		return nil, err
	}

	dept := &model.Department{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	if err := s.departments.Create(ctx, dept); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.Validation("name", MsgDepartmentNameTaken)
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return dept, nil
}

// DeleteDepartment removes a department that no clinician belongs to.
func (s *Service) DeleteDepartment(ctx context.Context, p *model.Principal, id int64) error {
	if err := s.guard.RequireAdmin(ctx, p, "department.delete"); err != nil {
		return err
	}

	if err := s.departments.Delete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrProtected) {
			return errors.NonField(MsgDepartmentInUse)
		}
		return notFound(err, "Department", "delete department")
	}
	return nil
}
