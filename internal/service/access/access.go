// Package access resolves who is calling and which role rules apply to them.
// Every scoping decision in the services goes through the Principal built
// here; admin group membership always wins over a clinician profile.
package access

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgInvalidToken     = "Given token not valid for any token type"
	MsgUserInactive     = "User is inactive"
	MsgPermissionDenied = "You do not have permission to perform this action."
)

type Resolver struct {
	users      repository.UserRepository
	clinicians repository.ClinicianRepository
	patients   repository.PatientRepository
	adminGroup string
}

func NewResolver(users repository.UserRepository, clinicians repository.ClinicianRepository,
	patients repository.PatientRepository, adminGroup string) *Resolver {
	if adminGroup == "" {
		adminGroup = model.DefaultAdminGroup
	}
	return &Resolver{
		users:      users,
		clinicians: clinicians,
		patients:   patients,
		adminGroup: adminGroup,
	}
}

// Resolve loads the user and their optional profiles. Missing or inactive
// users are unauthenticated.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*model.Principal, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(MsgInvalidToken)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, errors.Unauthorized(MsgUserInactive)
	}

	principal := &model.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Admin:  user.InGroup(r.adminGroup),
	}

	clinician, err := r.clinicians.GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		principal.Clinician = clinician
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load clinician profile: %w", err)
	}

	patient, err := r.patients.GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		principal.PatientID = &patient.ID
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load patient profile: %w", err)
	}

	return principal, nil
}

// Guard applies the role checks shared by all services.
type Guard struct {
	metrics *metrics.Metrics
}

func NewGuard(m *metrics.Metrics) *Guard {
	return &Guard{metrics: m}
}

// RequireAdmin allows patient administrators only.
func (g *Guard) RequireAdmin(ctx context.Context, p *model.Principal, action string) error {
	if p == nil {
		return errors.Unauthorized(MsgNotAuthenticated)
	}
	if p.IsAdmin() {
		return nil
	}
	return g.Deny(ctx, p, action, "admin_required")
}

// RequireStaff allows administrators and clinicians.
func (g *Guard) RequireStaff(ctx context.Context, p *model.Principal, action string) error {
	if p == nil {
		return errors.Unauthorized(MsgNotAuthenticated)
	}
	if p.IsAdmin() || p.IsClinician() {
		return nil
	}
	return g.Deny(ctx, p, action, "staff_required")
}

// Deny records the refusal and returns a 403.
func (g *Guard) Deny(ctx context.Context, p *model.Principal, action, reason string) error {
	g.observe(ctx, p, action, reason)
	return errors.Forbidden(MsgPermissionDenied)
}

// Hide records the refusal and returns a 404 for resource, so that
// out-of-scope rows look exactly like missing ones.
func (g *Guard) Hide(ctx context.Context, p *model.Principal, action, resource string) error {
	g.observe(ctx, p, action, "out_of_scope")
	return errors.NotFound(resource)
}

func (g *Guard) observe(ctx context.Context, p *model.Principal, action, reason string) {
	var userID int64
	if p != nil {
		userID = p.UserID
	}
	log.Ctx(ctx).Debug().
		Int64("user_id", userID).
		Str("role", string(p.Role())).
		Str("action", action).
		Str("reason", reason).
		Msg("access denied")
	if g != nil {
		g.metrics.Denied(reason)
	}
}
