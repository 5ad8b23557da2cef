// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → decodes requests, writes responses
//	Service (business layer) → validates, enforces ownership, orchestrates
//	Repository (data layer)  → reads/writes documents
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values that the handler layer maps onto status codes. Nothing
// here knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
	"github.com/sakif/devconnect/internal/validate"
)

// RegisterInput is the payload of POST /api/users.
type RegisterInput struct {
	Name     string `json:"name" validate:"notblank" msg:"Name is required"`
	Email    string `json:"email" validate:"required,email" msg:"Please include a valid email"`
	Password string `json:"password" validate:"min=6,maxbytes=72" msg:"Please enter a password with 6 or more characters" msg_maxbytes:"Please enter a password of 72 bytes or fewer"`
}

// LoginInput is the payload of POST /api/auth.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email" msg:"Please include a valid email"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

// AuthService handles registration, login and identity lookup.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validator *validate.Validator
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validator *validate.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validator: validator,
		logger:    logger,
	}
}

// Register creates a new user. The email is stored trimmed and lower-cased,
// so "Ada@X.com" and "ada@x.com" are the same account.
//
// Returns apperror.ErrConflict if the email is already registered. No token
// is issued; the client logs in afterwards.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User already registered")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    auth.AvatarURL(email),
	}

	// The unique index still guards the race between the lookup and the
	// insert; CreateUser reports it as a Conflict too.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks the credentials and issues a signed token for the user.
//
// An unknown email and a wrong password produce the same
// apperror.ErrInvalidCredentials, so callers cannot tell which emails exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := s.validator.Struct(in); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/auth: looking up email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/auth: verifying password: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return token, nil
}

// Me returns the user behind an authenticated identity.
// Returns apperror.ErrNotFound if the account no longer exists.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("No token, authorization denied")
	}
	return s.users.GetUserByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookupUser loads the user behind an identity. A token can outlive its
// account, so a missing user is reported as NotFound "User not found".
func lookupUser(ctx context.Context, users repository.UserRepository, userID string) (*model.User, error) {
	u, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("User not found")
		}
		return nil, fmt.Errorf("service: loading user %s: %w", userID, err)
	}
	return u, nil
}
