package user

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/security"
)

type Service struct {
	repo   repository.UserRepository
	hasher security.PasswordHasher
	guard  *access.Guard
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, guard *access.Guard) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		guard:  guard,
	}
}

// CreateUser registers a login identity. Admin only.
func (s *Service) CreateUser(ctx context.Context, p *model.Principal, req *model.CreateUserRequest) (*model.User, error) {
	if err := s.guard.RequireAdmin(ctx, p, "user.create"); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if stderrors.Is(err, security.ErrPasswordTooShort) {
			return nil, errors.Validation("password", fmt.Sprintf("Ensure this field has at least %d characters.", security.MinPasswordLen))
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		IsActive:     true,
		Groups:       req.Groups,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.Validation("email", "user with this email already exists.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser returns a user. Admins see anyone, everybody else only themselves.
func (s *Service) GetUser(ctx context.Context, p *model.Principal, id int64) (*model.User, error) {
	if p == nil {
		return nil, errors.Unauthorized(access.MsgNotAuthenticated)
	}
	if !p.IsAdmin() && p.UserID != id {
		return nil, s.guard.Hide(ctx, p, "user.get", "User")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("User")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Me describes the calling principal.
type Me struct {
	User        *model.User `json:"user"`
	Role        model.Role  `json:"role"`
	ClinicianID *int64      `json:"clinician_id"`
	PatientID   *int64      `json:"patient_id"`
}

func (s *Service) Me(ctx context.Context, p *model.Principal) (*Me, error) {
	if p == nil {
		return nil, errors.Unauthorized(access.MsgNotAuthenticated)
	}
	user, err := s.GetUser(ctx, p, p.UserID)
	if err != nil {
		return nil, err
	}
	me := &Me{User: user, Role: p.Role(), PatientID: p.PatientID}
	if p.Clinician != nil {
		id := p.Clinician.ID
		me.ClinicianID = &id
	}
	return me, nil
}
