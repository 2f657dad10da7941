package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/internal/repo"
	"github.com/BuzzLyutic/personal-tasks/internal/worker"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so that callers cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PasswordHasher is implemented by worker.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AuthService struct {
	users  repo.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *zap.Logger

	// compared against when the username is unknown, so both login
	// failures cost one bcrypt comparison
	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(users repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return model.AuthResponse{}, err
	}

	exists, err := s.users.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return model.AuthResponse{}, repo.ErrorConflict
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	// Уникальность окончательно проверяет хранилище (гонка двух регистраций)
	user, err := s.users.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return model.AuthResponse{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return s.respond(user)
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return model.AuthResponse{}, err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, repo.ErrorNotFound) {
		// burn the same time as a real comparison
		_ = s.hasher.Compare(ctx, s.dummy(ctx), req.Password)
		s.logger.Info("login failed")
		return model.AuthResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("find user: %w", err)
	}

	err = s.hasher.Compare(ctx, user.PasswordHash, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrMismatch):
		s.logger.Info("login failed", zap.String("user_id", user.ID))
		return model.AuthResponse{}, ErrInvalidCredentials
	default:
		return model.AuthResponse{}, fmt.Errorf("compare password: %w", err)
	}

	return s.respond(user)
}

// dummy returns the hash unknown usernames are compared against. A failed
// attempt is not cached: the next login tries again.
func (s *AuthService) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash == "" {
		hash, err := s.hasher.Hash(ctx, "not-a-real-password")
		if err != nil {
			s.logger.Warn("dummy hash failed", zap.Error(err))
			return ""
		}
		s.dummyHash = hash
	}
	return s.dummyHash
}

func (s *AuthService) respond(user model.User) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.AuthResponse{}, err
	}
	return model.AuthResponse{Token: token, User: user.Public()}, nil
}
