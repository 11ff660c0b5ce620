// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register/Login with email + password (the primary flow)
//   - Orchestrate the GitHub OAuth callback: upsert the account, issue a token
//   - Encapsulate all auth rules in one place, away from HTTP concerns
//
// IDENTITY NOTE:
// The email address is the identity the whole diary is scoped to — every
// location and memory carries the owner's email, and the JWT Subject claim is
// the email. There is no user-id anywhere in the request path.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/auth"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/repository"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations. It bundles the user
// record and the issued JWT together so the HTTP handler can set the cookie
// and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new email/password account and signs it in.
//
// Returns apperror.ErrValidation for missing fields and apperror.ErrConflict
// when the email is already registered (the repository enforces uniqueness).
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("email", user.Email))

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies an email/password pair and issues a JWT.
//
// Both "no such account" and "wrong password" collapse into the same
// apperror.ErrUnauthorized — the response must not reveal whether the email
// is registered. GitHub-only accounts have an empty password hash, which
// never verifies, so they fall into the same bucket too.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}

	s.logger.Info("user logged in", slog.String("email", user.Email))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a profile, this method
// upserts the diary account by email and issues the usual JWT. First sign-in
// creates the account (with an empty password hash — GitHub users never set
// one); later sign-ins just log in.
//
// WHY UPSERT BY EMAIL (not by GitHub ID)?
// The diary's identity is the email. A GitHub sign-in with the same email as
// an existing password account lands on that account — same diary, two doors.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if ghUser.Email == "" {
		return nil, apperror.Unauthorized("GitHub profile has no public email")
	}

	user, err := s.users.GetUserByEmail(ctx, ghUser.Email)
	if err != nil {
		name := ghUser.Name
		if name == "" {
			name = ghUser.Login
		}
		user = &model.User{
			Email: ghUser.Email,
			Name:  name,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user for GitHub sign-in: %w", err)
		}
		s.logger.Info("user registered via GitHub", slog.String("email", user.Email))
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByEmail returns the account for the given email. Used by the
// /api/me handler after the middleware extracts the identity from the JWT.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, fmt.Errorf("service/auth: email must not be empty")
	}
	return s.users.GetUserByEmail(ctx, email)
}

// ValidateToken validates a JWT string and returns the email it encodes.
// A thin delegation to TokenService.Validate so callers only import the
// service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	email, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return email, nil
}
