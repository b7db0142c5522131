package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"skusync/internal/core/apperror"
	appctx "skusync/internal/core/context"
	"skusync/internal/core/id"
	"skusync/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts  int
	LockDuration      time.Duration
	PasswordMinLength int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:  5,
		LockDuration:      15 * time.Minute,
		PasswordMinLength: 8,
	}
}

// Service provides login and user management.
type Service struct {
	repo       Repository
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates a new auth service.
func NewService(repo Repository, jwtService *JWTService, config ServiceConfig) *Service {
	return &Service{
		repo:       repo,
		jwtService: jwtService,
		config:     config,
	}
}

// Login authenticates a user and returns a session with an access token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockDuration)
		_ = s.repo.Update(ctx, user)
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	user.RecordSuccessfulLogin()
	_ = s.repo.Update(ctx, user)

	logger.Info(ctx, "user logged in", "user_id", user.ID, "email", user.Email)

	return &Session{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
		User:        user,
	}, nil
}

// CreateUser registers a new user. Admin only.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if !appctx.IsAdmin(ctx) {
		return nil, apperror.NewForbidden("only admins can manage users")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if !ValidRole(req.Role) {
		return nil, apperror.NewValidation("unknown role").WithDetail("role", req.Role)
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email exists: %w", err)
	}
	if exists {
		return nil, apperror.NewConflict("email already registered").WithDetail("email", email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(email, req.Name, req.Role, string(passwordHash))
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.Info(ctx, "user created", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}

// ResetPassword replaces a user's password. Admin only.
func (s *Service) ResetPassword(ctx context.Context, userID id.ID, password string) error {
	if !appctx.IsAdmin(ctx) {
		return apperror.NewForbidden("only admins can manage users")
	}
	if len(password) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apperror.NewNotFound("user", userID.String())
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(passwordHash)
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, user)
}

// SetRole changes a user's role. Admin only. The last admin cannot be
// demoted.
func (s *Service) SetRole(ctx context.Context, userID id.ID, role string) (*User, error) {
	if !appctx.IsAdmin(ctx) {
		return nil, apperror.NewForbidden("only admins can manage users")
	}
	if !ValidRole(role) {
		return nil, apperror.NewValidation("unknown role").WithDetail("role", role)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewNotFound("user", userID.String())
	}

	if user.Role == RoleAdmin && role != RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, userID); err != nil {
			return nil, err
		}
	}

	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user. Admin only; self-deletion and removing the
// last admin are refused.
func (s *Service) DeleteUser(ctx context.Context, userID id.ID) error {
	if !appctx.IsAdmin(ctx) {
		return apperror.NewForbidden("only admins can manage users")
	}
	if appctx.GetUserID(ctx) == userID.String() {
		return apperror.NewBusinessRule("SELF_DELETE", "you cannot delete your own account")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apperror.NewNotFound("user", userID.String())
	}
	if user.Role == RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, userID); err != nil {
			return err
		}
	}

	return s.repo.Delete(ctx, userID)
}

// GetUserByID retrieves a user.
func (s *Service) GetUserByID(ctx context.Context, userID id.ID) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return user, nil
}

// ListUsers lists all users. Admin only.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if !appctx.IsAdmin(ctx) {
		return nil, apperror.NewForbidden("only admins can manage users")
	}
	return s.repo.List(ctx)
}

// ValidateToken wraps the JWT service for middleware use.
func (s *Service) ValidateToken(token string) (*appctx.UserContext, error) {
	return s.jwtService.ValidateToken(token)
}

func (s *Service) requireAnotherAdmin(ctx context.Context, excluding id.ID) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID != excluding && users[i].Role == RoleAdmin && users[i].IsActive {
			return nil
		}
	}
	return apperror.NewBusinessRule("LAST_ADMIN", "at least one active admin must remain")
}
