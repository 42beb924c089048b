package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	jwtpkg "github.com/sungminna/options-sandbox/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Service handles authentication and user lookups
type Service struct {
	userRepo   repository.UserRepository
	jwtManager *jwtpkg.Manager
	logger     *slog.Logger
}

// NewService creates a new auth service
func NewService(userRepo repository.UserRepository, jwtManager *jwtpkg.Manager, logger *slog.Logger) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		logger:     logger.With("component", "auth"),
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResponse{Token: token, User: user}, nil
}

// Profile is the caller's own account summary
type Profile struct {
	Email   string          `json:"email"`
	Balance decimal.Decimal `json:"balance"`
	Role    model.Role      `json:"role"`
}

// Me returns the profile of the authenticated user. A token for a user
// that no longer exists is treated as unauthenticated.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("unauthorized")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &Profile{Email: user.Email, Balance: user.Balance, Role: user.Role}, nil
}

// EnsureUser creates the account if the email is not registered yet. Used
// to seed the operator and demo accounts at start-up.
func (s *Service) EnsureUser(ctx context.Context, email, password string, role model.Role, balance decimal.Decimal) (*model.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.NewUser(email, string(hashedPassword), role, balance)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user seeded", "user_id", user.ID, "email", email, "role", role)
	return user, nil
}
