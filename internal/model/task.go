package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch holds the fields of an update; nil means "leave as is".
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	Completed    *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Completed == nil
}

type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Absent fields are
// left untouched; an empty dueDate clears the due date.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty" validate:"omitnil,oneof=low medium high"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
