package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

type TokenIssuer interface {
	Issue(p domain.Profile) (string, time.Time, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	Profile   domain.Profile `json:"profile"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type AuthService struct {
	users    port.UserRepository
	tokens   TokenIssuer
	logger   *zap.Logger
	hashCost int
}

func NewAuthService(users port.UserRepository, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger, hashCost: bcrypt.DefaultCost}
}

// SignUp validates the form, then stores the user with a bcrypt password hash.
func (s *AuthService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.Profile, error) {
	role, err := in.Validate()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := domain.Profile{
		ID:    uuid.NewString(),
		Email: normalizeEmail(in.Email),
		Name:  strings.TrimSpace(in.Name),
		Role:  role,
	}
	if err := s.users.CreateUser(ctx, profile, hash); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.String("user_id", profile.ID), zap.String("role", string(role)))
	return &profile, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	profile, hash, err := s.users.FindCredentials(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(*profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", zap.String("user_id", profile.ID))
	return &Session{Profile: *profile, Token: token, ExpiresAt: expiresAt}, nil
}

// CurrentUser resolves the profile of a signed-in user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrUnauthenticated
	}
	return profile, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
