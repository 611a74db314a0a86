package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const (
	MsgLinkNotUnique    = "The fields patient, clinician, relationship_start must make a unique set."
	MsgLinkAlreadyEnded = "This care relationship has already ended."
	MsgEndBeforeStart   = "relationship_end must not be earlier than relationship_start."
)

// ListCareRelationships returns the links of a patient the caller can see,
// ended ones included, newest first.
func (s *Service) ListCareRelationships(ctx context.Context, p *model.Principal, patientID int64) ([]*model.CareRelationship, error) {
	if _, err := s.visible.GetPatient(ctx, p, patientID); err != nil {
		return nil, err
	}

	links, err := s.links.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list care relationships: %w", err)
	}
	return links, nil
}

func (s *Service) CreateCareRelationship(ctx context.Context, p *model.Principal, req *model.CreateCareRelationshipRequest) (*model.CareRelationship, error) {
	if err := s.guard.RequireAdmin(ctx, p, "care_relationship.create"); err != nil {
		return nil, err
	}

	fields := errors.FieldErrors{}
	_, err := s.patients.GetByID(ctx, req.PatientID)
	if err := checkRef(err, fields, "patient_id", req.PatientID); err != nil {
		return nil, err
	}
	_, err = s.clinicians.GetByID(ctx, req.ClinicianID)
	if err := checkRef(err, fields, "clinician_id", req.ClinicianID); err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	rel := &model.CareRelationship{
		PatientID:         req.PatientID,
		ClinicianID:       req.ClinicianID,
		RelationshipStart: s.now().UTC(),
		IsPrimary:         req.IsPrimary,
		Notes:             req.Notes,
	}
	if req.RelationshipStart != nil {
		rel.RelationshipStart = req.RelationshipStart.UTC()
	}

	if err := s.links.Create(ctx, rel); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrConflict):
			return nil, errors.NonField(MsgLinkNotUnique)
		case stderrors.Is(err, repository.ErrProtected):
			return nil, errors.NonField("A referenced record no longer exists.")
		}
		return nil, fmt.Errorf("failed to create care relationship: %w", err)
	}
	return rel, nil
}

// EndCareRelationship closes an active link at req.RelationshipEnd, or now.
func (s *Service) EndCareRelationship(ctx context.Context, p *model.Principal, id int64, req *model.EndCareRelationshipRequest) (*model.CareRelationship, error) {
	if err := s.guard.RequireAdmin(ctx, p, "care_relationship.end"); err != nil {
		return nil, err
	}

	rel, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Care relationship", "get care relationship")
	}
	if rel.RelationshipEnd != nil {
		return nil, errors.NonField(MsgLinkAlreadyEnded)
	}

	at := s.now().UTC()
	if req != nil && req.RelationshipEnd != nil {
		at = req.RelationshipEnd.UTC()
	}
	if at.Before(rel.RelationshipStart) {
		return nil, errors.Validation("relationship_end", MsgEndBeforeStart)
	}

	if err := s.links.End(ctx, id, at); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NonField(MsgLinkAlreadyEnded)
		}
		return nil, fmt.Errorf("failed to end care relationship: %w", err)
	}
	rel.RelationshipEnd = &at
	return rel, nil
}

func (s *Service) DeleteCareRelationship(ctx context.Context, p *model.Principal, id int64) error {
	if err := s.guard.RequireAdmin(ctx, p, "care_relationship.delete"); err != nil {
		return err
	}
	if err := s.links.SoftDelete(ctx, id); err != nil {
		return notFound(err, "Care relationship", "delete care relationship")
	}
	return nil
}
