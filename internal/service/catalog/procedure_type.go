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

const MsgProcedureCodeTaken = "procedure type with this code already exists."

func (s *Service) ListProcedureTypes(ctx context.Context, p *model.Principal, page repository.Page) ([]*model.ProcedureType, int, error) {
	if err := s.guard.RequireStaff(ctx, p, "procedure_type.list"); err != nil {
		return nil, 0, err
	}

	types, total, err := s.types.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list procedure types: %w", err)
	}
	return types, total, nil
}

func (s *Service) GetProcedureType(ctx context.Context, p *model.Principal, id int64) (*model.ProcedureType, error) {
	if err := s.guard.RequireStaff(ctx, p, "procedure_type.get"); err != nil {
		return nil, err
	}

	pt, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Procedure type", "get procedure type")
	}
	return pt, nil
}

func (s *Service) CreateProcedureType(ctx context.Context, p *model.Principal, req *model.CreateProcedureTypeRequest) (*model.ProcedureType, error) {
	if err := s.guard.RequireAdmin(ctx, p, "procedure_type.create"); err != nil {
		return nil, err
	}

	if req.DepartmentID != nil {
		fields := errors.FieldErrors{}
		_, err := s.departments.GetByID(ctx, *req.DepartmentID)
		if err := checkRef(err, fields, "department_id", *req.DepartmentID); err != nil {
			return nil, err
		}
		if err := fields.Err(); err != nil {
			return nil, err
		}
	}

	pt := &model.ProcedureType{
		Name:                   strings.TrimSpace(req.Name),
		Code:                   strings.TrimSpace(req.Code),
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		DepartmentID:           req.DepartmentID,
		IsActive:               true,
	}
	if req.IsActive != nil {
		pt.IsActive = *req.IsActive
	}

	if err := s.types.Create(ctx, pt); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrConflict):
			return nil, errors.Validation("code", MsgProcedureCodeTaken)
		case stderrors.Is(err, repository.ErrProtected):
			return nil, errors.Validation("department_id", fmt.Sprintf(msgInvalidPK, *req.DepartmentID))
		}
		return nil, fmt.Errorf("failed to create procedure type: %w", err)
	}
	return pt, nil
}

// RetireProcedureType blocks new procedures of the type. Existing ones keep it.
func (s *Service) RetireProcedureType(ctx context.Context, p *model.Principal, id int64) (*model.ProcedureType, error) {
	if err := s.guard.RequireAdmin(ctx, p, "procedure_type.retire"); err != nil {
		return nil, err
	}

	if err := s.types.Retire(ctx, id); err != nil {
		return nil, notFound(err, "Procedure type", "retire procedure type")
	}
	pt, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Procedure type", "get procedure type")
	}
	return pt, nil
}
