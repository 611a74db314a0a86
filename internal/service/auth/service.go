package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/pkg/auth"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/security"
)

const MsgInvalidCredentials = "No active account found with the given credentials"

type Service struct {
	userRepo repository.UserRepository
	tokens   auth.TokenService
	hasher   security.PasswordHasher
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, tokens auth.TokenService, hasher security.PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Login exchanges credentials for an access token. Unknown emails, wrong
// passwords and inactive users all fail the same way.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		log.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("login rejected: bad password")
		return nil, errors.Unauthorized(MsgInvalidCredentials)
	}
	if !user.IsActive {
		log.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("login rejected: inactive user")
		return nil, errors.Unauthorized(MsgInvalidCredentials)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
	}, nil
}

// Authenticate parses a bearer token and returns the user id it was issued for.
func (s *Service) Authenticate(token string) (int64, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, errors.Unauthorized("Given token not valid for any token type")
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, errors.Unauthorized("Given token not valid for any token type")
	}
	return userID, nil
}
