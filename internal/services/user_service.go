package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"photo-rating/internal/common"
	"photo-rating/internal/models"
	"photo-rating/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users         store.UserStore
	tokens        *TokenIssuer
	initialPoints int
	bcryptCost    int
	logger        *slog.Logger
}

func NewUserService(users store.UserStore, tokens *TokenIssuer, initialPoints int, logger *slog.Logger) *UserService {
	return &UserService{
		users:         users,
		tokens:        tokens,
		initialPoints: initialPoints,
		bcryptCost:    bcrypt.DefaultCost,
		logger:        logger,
	}
}

// normalizeEmail trims and lower-cases an address; accounts are keyed on
// the result.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return common.Invalid("Email and password are required")
	}
	if !strings.Contains(email, "@") {
		return common.Invalid("Invalid email")
	}
	return nil
}

func (s *UserService) authResponse(u *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: u.Info()}, nil
}

// Register creates an account holding the initial balance and logs it in.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash), s.initialPoints)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return s.authResponse(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Invalid("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", common.ErrAuthFailure)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrAuthFailure)
	}

	return s.authResponse(user)
}

// ForgotPassword only confirms the account exists; no mail is sent.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return common.Invalid("Email is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// Authenticate resolves a bearer token to an existing user id.
func (s *UserService) Authenticate(ctx context.Context, token string) (int64, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return 0, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, fmt.Errorf("%w: unknown user", common.ErrAuthFailure)
		}
		return 0, err
	}
	return userID, nil
}
