package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"conectasat/internal/auth/models"
	"conectasat/internal/auth/store"
	"conectasat/internal/jwttoken"
	"conectasat/internal/platform/metrics"
)

// ErrInvalidCredentials is returned for any authentication failure. It is
// deliberately uniform so callers cannot probe which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// defaultUserEmail owns verifications made with tokens that were never tied
// to a user. The user is created lazily on first such verification.
const (
	defaultUserEmail = "default@conectasat.com"
	defaultUserName  = "Default User"
)

// Service owns API token and superadmin lifecycle.
type Service struct {
	tokens  store.TokenStore
	admins  store.AdminStore
	users   store.UserStore
	jwt     *jwttoken.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates the auth service.
func New(tokens store.TokenStore, admins store.AdminStore, users store.UserStore, jwt *jwttoken.Service, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tokens:  tokens,
		admins:  admins,
		users:   users,
		jwt:     jwt,
		logger:  logger,
		metrics: m,
	}
}

// generateTokenValue returns a URL-safe random credential.
func generateTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateToken mints a new active API token.
func (s *Service) CreateToken(ctx context.Context, description string) (*models.APIToken, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, err
	}
	token := &models.APIToken{
		Token:       value,
		Description: description,
		IsActive:    true,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	s.metrics.IncTokensCreated()
	s.logger.InfoContext(ctx, "api token created", "token_id", token.ID)
	return token, nil
}

// GetToken returns one token by ID.
func (s *Service) GetToken(ctx context.Context, id int64) (*models.APIToken, error) {
	return s.tokens.GetByID(ctx, id)
}

// ListTokens returns a page of tokens plus the total count.
func (s *Service) ListTokens(ctx context.Context, skip, limit int) ([]*models.APIToken, int64, error) {
	tokens, err := s.tokens.List(ctx, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tokens.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tokens, total, nil
}

// UpdateToken changes a token's description and/or active flag. Nil fields
// are left untouched.
func (s *Service) UpdateToken(ctx context.Context, id int64, description *string, isActive *bool) (*models.APIToken, error) {
	token, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if description != nil {
		token.Description = *description
	}
	if isActive != nil {
		token.IsActive = *isActive
	}
	if err := s.tokens.Update(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// RegenerateToken replaces the credential value, invalidating the old one.
func (s *Service) RegenerateToken(ctx context.Context, id int64) (*models.APIToken, error) {
	token, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	value, err := generateTokenValue()
	if err != nil {
		return nil, err
	}
	token.Token = value
	if err := s.tokens.Update(ctx, token); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "api token regenerated", "token_id", token.ID)
	return token, nil
}

// DeleteToken removes a token permanently.
func (s *Service) DeleteToken(ctx context.Context, id int64) error {
	return s.tokens.Delete(ctx, id)
}

// ResolveToken validates a bearer API token and returns the user it belongs
// to, lazily attributing unowned tokens to the default user. Implements
// middleware.TokenValidator.
func (s *Service) ResolveToken(ctx context.Context, value string) (int64, error) {
	token, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}
	if !token.IsActive {
		return 0, ErrInvalidCredentials
	}
	if token.UserID != nil {
		return *token.UserID, nil
	}

	user, err := s.users.GetUserByEmail(ctx, defaultUserEmail)
	if errors.Is(err, store.ErrNotFound) {
		user = &models.User{Name: defaultUserName, Email: defaultUserEmail, IsActive: true}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	token.UserID = &user.ID
	if err := s.tokens.Update(ctx, token); err != nil {
		// Attribution is best effort; the verification still proceeds.
		s.logger.WarnContext(ctx, "could not associate token with default user",
			"token_id", token.ID,
			"error", err,
		)
	}
	return user.ID, nil
}

// AuthenticateAdmin checks superadmin basic-auth credentials. Implements part
// of middleware.AdminValidator.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) error {
	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !admin.IsActive {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateAccessToken verifies an admin JWT and returns the username.
// Implements part of middleware.AdminValidator.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	return s.jwt.Validate(tokenString)
}

// Login exchanges superadmin credentials for a short-lived access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if err := s.AuthenticateAdmin(ctx, username, password); err != nil {
		return "", err
	}
	return s.jwt.Issue(username)
}

// CreateAdmin registers a new superadmin with a bcrypt-hashed password.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*models.SuperAdmin, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &models.SuperAdmin{
		Username:       username,
		HashedPassword: string(hashed),
		IsActive:       true,
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "superadmin created", "username", username)
	return admin, nil
}

// UpdateAdminPassword replaces a superadmin's password.
func (s *Service) UpdateAdminPassword(ctx context.Context, username, password string) error {
	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin.HashedPassword = string(hashed)
	return s.admins.UpdateAdmin(ctx, admin)
}

// DeactivateAdmin disables a superadmin account without deleting its row.
func (s *Service) DeactivateAdmin(ctx context.Context, username string) error {
	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		return err
	}
	admin.IsActive = false
	if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "superadmin deactivated", "username", username)
	return nil
}

// EnsureBootstrapAdmin creates the configured superadmin at startup if no
// account with that username exists yet.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.admins.GetAdminByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err = s.CreateAdmin(ctx, username, password)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Another instance won the race; that is fine.
		return nil
	}
	return err
}
