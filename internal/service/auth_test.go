package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/internal/repo"
	"github.com/BuzzLyutic/personal-tasks/internal/repo/mocks"
	"github.com/BuzzLyutic/personal-tasks/internal/worker"
)

func newAuth(t *testing.T, users *mocks.UserRepository) (*AuthService, *TokenService) {
	t.Helper()
	hasher := worker.NewHasher(zap.NewNop(), 2, bcrypt.MinCost)
	hasher.Start(context.Background())
	t.Cleanup(hasher.Stop)

	tokens := NewTokenService("test-secret", 0)
	return NewAuthService(users, hasher, tokens, zap.NewNop()), tokens
}

func TestAuthService_Register(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		users := new(mocks.UserRepository)
		users.On("Exists", mock.Anything, "alice", "a@x.com").Return(false, nil)
		users.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "alice" && u.Email == "a@x.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw123")) == nil
		})).Return(model.User{ID: "u1", Username: "alice", Email: "a@x.com", PasswordHash: "hash"}, nil)

		auth, tokens := newAuth(t, users)
		resp, err := auth.Register(context.Background(), model.RegisterRequest{
			Username: " alice ",
			Email:    "A@X.com",
			Password: "pw123",
		})

		require.NoError(t, err)
		assert.Equal(t, model.PublicUser{ID: "u1", Username: "alice", Email: "a@x.com"}, resp.User)
		userID, err := tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
		users.AssertExpectations(t)
	})

	t.Run("existing username or email", func(t *testing.T) {
		users := new(mocks.UserRepository)
		users.On("Exists", mock.Anything, "alice", "a@x.com").Return(true, nil)

		auth, _ := newAuth(t, users)
		_, err := auth.Register(context.Background(), model.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})

		assert.ErrorIs(t, err, repo.ErrorConflict)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lost race on insert", func(t *testing.T) {
		users := new(mocks.UserRepository)
		users.On("Exists", mock.Anything, "alice", "a@x.com").Return(false, nil)
		users.On("Create", mock.Anything, mock.Anything).Return(model.User{}, repo.ErrorConflict)

		auth, _ := newAuth(t, users)
		_, err := auth.Register(context.Background(), model.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})

		assert.ErrorIs(t, err, repo.ErrorConflict)
	})

	validation := []struct {
		name string
		req  model.RegisterRequest
	}{
		{name: "missing username", req: model.RegisterRequest{Email: "a@x.com", Password: "pw"}},
		{name: "blank username", req: model.RegisterRequest{Username: "  ", Email: "a@x.com", Password: "pw"}},
		{name: "missing email", req: model.RegisterRequest{Username: "alice", Password: "pw"}},
		{name: "bad email", req: model.RegisterRequest{Username: "alice", Email: "alice", Password: "pw"}},
		{name: "missing password", req: model.RegisterRequest{Username: "alice", Email: "a@x.com"}},
	}
	for _, tt := range validation {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mocks.UserRepository)
			auth, _ := newAuth(t, users)

			_, err := auth.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123"), bcrypt.MinCost)
	require.NoError(t, err)
	alice := model.User{ID: "u1", Username: "alice", Email: "a@x.com", PasswordHash: string(hash)}

	t.Run("correct password", func(t *testing.T) {
		users := new(mocks.UserRepository)
		users.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)

		auth, tokens := newAuth(t, users)
		resp, err := auth.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "pw123"})

		require.NoError(t, err)
		assert.Equal(t, alice.Public(), resp.User)
		userID, err := tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		users := new(mocks.UserRepository)
		users.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
		users.On("FindByUsername", mock.Anything, "mallory").Return(model.User{}, repo.ErrorNotFound)

		auth, _ := newAuth(t, users)
		_, wrongPassword := auth.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "nope"})
		_, unknownUser := auth.Login(context.Background(), model.LoginRequest{Username: "mallory", Password: "pw123"})

		assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		auth, _ := newAuth(t, new(mocks.UserRepository))

		_, err := auth.Login(context.Background(), model.LoginRequest{Username: "alice"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = auth.Login(context.Background(), model.LoginRequest{Password: "pw"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

// flakyHasher fails its first Hash call and records every Compare.
type flakyHasher struct {
	hashCalls int
	compared  []string
}

func (h *flakyHasher) Hash(ctx context.Context, password string) (string, error) {
	h.hashCalls++
	if h.hashCalls == 1 {
		return "", worker.ErrStopped
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}

func (h *flakyHasher) Compare(ctx context.Context, hash, password string) error {
	h.compared = append(h.compared, hash)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errors.Join(worker.ErrMismatch, err)
	}
	return nil
}

func TestAuthService_LoginUnknownUserAfterDummyHashFailure(t *testing.T) {
	users := new(mocks.UserRepository)
	users.On("FindByUsername", mock.Anything, "mallory").Return(model.User{}, repo.ErrorNotFound)

	hasher := &flakyHasher{}
	auth := NewAuthService(users, hasher, NewTokenService("test-secret", 0), zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := auth.Login(context.Background(), model.LoginRequest{Username: "mallory", Password: "pw"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	require.Len(t, hasher.compared, 3)
	assert.Empty(t, hasher.compared[0], "first dummy hash failed")
	assert.NotEmpty(t, hasher.compared[1], "second login retries the dummy hash")
	assert.Equal(t, hasher.compared[1], hasher.compared[2], "successful dummy hash is reused")
	assert.Equal(t, 2, hasher.hashCalls)
}
