// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

// TaskRepository - мок репозитория задач
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *TaskRepository) Get(ctx context.Context, owner, id string) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *TaskRepository) List(ctx context.Context, owner string) ([]model.Task, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *TaskRepository) Update(ctx context.Context, owner, id string, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, owner, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *TaskRepository) Toggle(ctx context.Context, owner, id string) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *TaskRepository) Delete(ctx context.Context, owner, id string) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

func (m *TaskRepository) Stats(ctx context.Context, owner string) (model.TaskStats, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

func (m *TaskRepository) SaveIdempotencyKey(ctx context.Context, owner, key, taskID string) error {
	args := m.Called(ctx, owner, key, taskID)
	return args.Error(0)
}

func (m *TaskRepository) GetIdempotencyKey(ctx context.Context, owner, key string) (string, error) {
	args := m.Called(ctx, owner, key)
	return args.String(0), args.Error(1)
}

// UserRepository - мок хранилища пользователей
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}
