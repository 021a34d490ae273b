package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type tokenIssuer interface {
	GenerateToken(userID int64, email string) (string, error)
}

// Service contains account registration and login.
type Service struct {
	users  Repository
	jwt    tokenIssuer
	logger *slog.Logger
}

func NewService(users Repository, jwt tokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, jwt: jwt, logger: logger}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", ErrEmailAlreadyExists
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent registration can win between the check and the insert
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, "", ErrEmailAlreadyExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, string, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}
