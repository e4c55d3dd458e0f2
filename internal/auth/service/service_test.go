package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"conectasat/internal/auth/store"
	"conectasat/internal/jwttoken"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	service *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.New("test-signing-key", 30*time.Minute)
	s.service = New(s.store, s.store, s.store, jwt, logger, nil)
}

func (s *AuthServiceSuite) TestCreateAndResolveToken() {
	token, err := s.service.CreateToken(s.ctx, "ci pipeline")
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), token.Token)
	assert.True(s.T(), token.IsActive)

	userID, err := s.service.ResolveToken(s.ctx, token.Token)
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), userID)

	// Resolving again attributes to the same lazily created default user.
	again, err := s.service.ResolveToken(s.ctx, token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), userID, again)
}

func (s *AuthServiceSuite) TestResolveToken_Unknown() {
	_, err := s.service.ResolveToken(s.ctx, "no-such-token")
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
}

func (s *AuthServiceSuite) TestResolveToken_Inactive() {
	token, err := s.service.CreateToken(s.ctx, "soon disabled")
	require.NoError(s.T(), err)

	inactive := false
	_, err = s.service.UpdateToken(s.ctx, token.ID, nil, &inactive)
	require.NoError(s.T(), err)

	_, err = s.service.ResolveToken(s.ctx, token.Token)
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
}

func (s *AuthServiceSuite) TestRegenerateToken() {
	token, err := s.service.CreateToken(s.ctx, "rotating")
	require.NoError(s.T(), err)
	oldValue := token.Token

	regenerated, err := s.service.RegenerateToken(s.ctx, token.ID)
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), oldValue, regenerated.Token)

	_, err = s.service.ResolveToken(s.ctx, oldValue)
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
	_, err = s.service.ResolveToken(s.ctx, regenerated.Token)
	require.NoError(s.T(), err)
}

func (s *AuthServiceSuite) TestUpdateToken_PartialFields() {
	token, err := s.service.CreateToken(s.ctx, "before")
	require.NoError(s.T(), err)

	desc := "after"
	updated, err := s.service.UpdateToken(s.ctx, token.ID, &desc, nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "after", updated.Description)
	assert.True(s.T(), updated.IsActive)
}

func (s *AuthServiceSuite) TestAdminAuthentication() {
	_, err := s.service.CreateAdmin(s.ctx, "root", "hunter2")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.AuthenticateAdmin(s.ctx, "root", "hunter2"))
	assert.ErrorIs(s.T(), s.service.AuthenticateAdmin(s.ctx, "root", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(s.T(), s.service.AuthenticateAdmin(s.ctx, "ghost", "hunter2"), ErrInvalidCredentials)
}

func (s *AuthServiceSuite) TestAdminPasswordIsHashed() {
	admin, err := s.service.CreateAdmin(s.ctx, "root", "hunter2")
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), "hunter2", admin.HashedPassword)
	assert.NotContains(s.T(), admin.HashedPassword, "hunter2")
}

func (s *AuthServiceSuite) TestLoginIssuesValidJWT() {
	_, err := s.service.CreateAdmin(s.ctx, "root", "hunter2")
	require.NoError(s.T(), err)

	access, err := s.service.Login(s.ctx, "root", "hunter2")
	require.NoError(s.T(), err)

	username, err := s.service.ValidateAccessToken(access)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "root", username)
}

func (s *AuthServiceSuite) TestLogin_DeactivatedAdmin() {
	_, err := s.service.CreateAdmin(s.ctx, "root", "hunter2")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.service.DeactivateAdmin(s.ctx, "root"))

	_, err = s.service.Login(s.ctx, "root", "hunter2")
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
}

func (s *AuthServiceSuite) TestEnsureBootstrapAdmin_Idempotent() {
	require.NoError(s.T(), s.service.EnsureBootstrapAdmin(s.ctx, "root", "hunter2"))
	require.NoError(s.T(), s.service.EnsureBootstrapAdmin(s.ctx, "root", "different"))

	// The second call must not overwrite the original password.
	require.NoError(s.T(), s.service.AuthenticateAdmin(s.ctx, "root", "hunter2"))
}

func (s *AuthServiceSuite) TestEnsureBootstrapAdmin_SkipsEmptyCredentials() {
	require.NoError(s.T(), s.service.EnsureBootstrapAdmin(s.ctx, "", ""))
	_, err := s.store.GetAdminByUsername(s.ctx, "")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}
