package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// ErrorUnknownOwner means the owner id has no user row (Postgres only).
	ErrorUnknownOwner = errors.New("unknown owner")
)

const taskColumns = `id, owner_id, title, description, priority, due_date, completed, created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		uuid.NewString(), t.Owner, t.Title, t.Description, string(t.Priority), t.DueDate,
	)
	created, err := scanTask(row)
	return created, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, owner, id string) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND owner_id = $2
	`, id, owner)
	return r.scanOne(row)
}

func (r *TaskRepo) List(ctx context.Context, owner string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, owner, id string, patch model.TaskPatch) (model.Task, error) {
	var priority *string
	if patch.Priority != nil {
		p := string(*patch.Priority)
		priority = &p
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    priority = COALESCE($5, priority),
		    due_date = CASE WHEN $7 THEN NULL ELSE COALESCE($6, due_date) END,
		    completed = COALESCE($8, completed),
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, owner, patch.Title, patch.Description, priority, patch.DueDate, patch.ClearDueDate, patch.Completed,
	)
	return r.scanOne(row)
}

func (r *TaskRepo) Toggle(ctx context.Context, owner, id string) (model.Task, error) {
	// Одна атомарная операция, без чтения перед записью
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, owner,
	)
	return r.scanOne(row)
}

func (r *TaskRepo) Delete(ctx context.Context, owner, id string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND owner_id = $2", id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) Stats(ctx context.Context, owner string) (model.TaskStats, error) {
	var s model.TaskStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE completed)
		FROM tasks
		WHERE owner_id = $1
	`, owner).Scan(&s.Total, &s.Completed)
	return s, err
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, owner, key, taskID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (owner_id, key, task_id) VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, key) DO UPDATE SET task_id = EXCLUDED.task_id
	`, owner, key, taskID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, owner, key string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT task_id FROM idempotency_keys WHERE owner_id = $1 AND key = $2
	`, owner, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) scanOne(row pgx.Row) (model.Task, error) {
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t        model.Task
		priority string
		due      *time.Time
	)
	err := row.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &priority, &due, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	t.Priority = model.Priority(priority)
	t.DueDate = due
	return t, err
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrorConflict
		case "23503": // owner_id не найден в users
			return ErrorUnknownOwner
		}
	}
	return err
}
