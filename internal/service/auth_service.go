package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Generate(userID string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AuthService registers users and logs them in.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	hasher PasswordHasher
	log    *zap.Logger
}

func NewAuthService(users UserStore, tokens TokenIssuer, hasher PasswordHasher, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher, log: log}
}

// Register creates an account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	user := &model.User{Email: normalizeEmail(email), PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return "", ErrEmailTaken
		}
		return "", err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.tokens.Generate(user.ID)
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Generate(user.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
