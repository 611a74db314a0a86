package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/internal/model"
	authService "github.com/jwalitptl/clinical-api/internal/service/auth"
	"github.com/jwalitptl/clinical-api/internal/testutil"
	"github.com/jwalitptl/clinical-api/pkg/auth"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

var ctx = context.Background()

func newService(w *testutil.World) (*authService.Service, auth.TokenService) {
	tokens := auth.NewJWTService("test-secret", "clinical-api", time.Hour)
	return authService.NewService(w.Repos.Users, tokens, testutil.Hasher()), tokens
}

func TestLogin(t *testing.T) {
	w := testutil.NewWorld(t)
	u := w.User("doc@clinic.test")
	svc, _ := newService(w)

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: " doc@clinic.test ", Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.InDelta(t, time.Hour.Seconds(), float64(resp.ExpiresIn), 5)

	id, err := svc.Authenticate(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	w := testutil.NewWorld(t)
	w.User("doc@clinic.test")
	hash, err := testutil.Hasher().Hash(testutil.Password)
	require.NoError(t, err)
	require.NoError(t, w.Repos.Users.Create(ctx, &model.User{Email: "gone@clinic.test", PasswordHash: hash}))
	svc, _ := newService(w)

	cases := []model.LoginRequest{
		{Email: "missing@clinic.test", Password: testutil.Password},
		{Email: "doc@clinic.test", Password: "wrong-password"},
		{Email: "gone@clinic.test", Password: testutil.Password},
	}
	for _, req := range cases {
		req := req
		_, err := svc.Login(ctx, &req)
		appErr, ok := errors.As(err)
		require.True(t, ok, req.Email)
		assert.Equal(t, errors.ErrUnauthorized, appErr.Code, req.Email)
		assert.Equal(t, authService.MsgInvalidCredentials, appErr.Message, req.Email)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	w := testutil.NewWorld(t)
	svc, _ := newService(w)

	_, err := svc.Authenticate("not-a-token")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	other := auth.NewJWTService("other-secret", "clinical-api", time.Hour)
	token, _, err := other.Issue(1, "x@clinic.test")
	require.NoError(t, err)
	_, err = svc.Authenticate(token)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
