package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/internal/repo"
)

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) List(ctx context.Context, owner string) ([]model.Task, error) {
	return s.repo.List(ctx, owner)
}

func (s *TaskService) Create(ctx context.Context, owner string, req model.CreateTaskRequest, idempKey string) (model.Task, error) {
	t, err := s.build(owner, req) // Валидация входных данных
	if err != nil {
		return t, err
	}

	if idempKey != "" { // Обеспечение идемпотентности - повторный ключ возвращает уже созданную задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, owner, idempKey); err == nil {
			existing, err := s.repo.Get(ctx, owner, existingID)
			if err == nil {
				return existing, nil
			}
			// задача с этим ключом уже удалена - создаем заново
			if !errors.Is(err, repo.ErrorNotFound) {
				return existing, err
			}
		}
	}

	// Создание новой задачи
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return created, err
	}

	// Сохранение нового ключа
	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, owner, idempKey, created.ID); err != nil {
			return created, err
		}
	}

	return created, nil
}

func (s *TaskService) Update(ctx context.Context, owner, id string, req model.UpdateTaskRequest) (model.Task, error) {
	patch, err := s.patch(req)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Empty() {
		return s.repo.Get(ctx, owner, id)
	}
	return s.repo.Update(ctx, owner, id, patch)
}

func (s *TaskService) Toggle(ctx context.Context, owner, id string) (model.Task, error) {
	return s.repo.Toggle(ctx, owner, id)
}

func (s *TaskService) Delete(ctx context.Context, owner, id string) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *TaskService) Stats(ctx context.Context, owner string) (model.TaskStats, error) {
	stats, err := s.repo.Stats(ctx, owner)
	if err != nil {
		return stats, err
	}
	stats.Percent = Percent(stats.Completed, stats.Total)
	return stats, nil
}

// Percent is completed/total rounded to the nearest whole percent, 0 when
// there is nothing to complete.
func Percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func (s *TaskService) build(owner string, req model.CreateTaskRequest) (model.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return model.Task{}, err
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return model.Task{}, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	return model.Task{
		Owner:       owner,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     due,
	}, nil
}

func (s *TaskService) patch(req model.UpdateTaskRequest) (model.TaskPatch, error) {
	if err := validateStruct(req); err != nil {
		return model.TaskPatch{}, err
	}

	patch := model.TaskPatch{
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.TaskPatch{}, validationError("title is required")
		}
		patch.Title = &title
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return model.TaskPatch{}, err
		}
		patch.DueDate = due
		patch.ClearDueDate = due == nil
	}
	return patch, nil
}
