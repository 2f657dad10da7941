package repo

import (
	"context"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Every method except Create is scoped by owner: a task that exists but
// belongs to someone else is reported as ErrorNotFound.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	List(ctx context.Context, owner string) ([]model.Task, error)
	Update(ctx context.Context, owner, id string, patch model.TaskPatch) (model.Task, error)
	Toggle(ctx context.Context, owner, id string) (model.Task, error)
	Delete(ctx context.Context, owner, id string) error
	Get(ctx context.Context, owner, id string) (model.Task, error)
	Stats(ctx context.Context, owner string) (model.TaskStats, error)
	SaveIdempotencyKey(ctx context.Context, owner, key, taskID string) error
	GetIdempotencyKey(ctx context.Context, owner, key string) (string, error)
}

// UserRepository хранит учетные записи. Username и email уникальны.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
}
