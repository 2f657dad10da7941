package client

import (
	"context"
	"fmt"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, active or completed)", s)
}

// TaskAPI is the part of Client the Board needs.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, req model.CreateTaskRequest) (model.Task, error)
	UpdateTask(ctx context.Context, id string, req model.UpdateTaskRequest) (model.Task, error)
	ToggleTask(ctx context.Context, id string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Board is the client-side copy of the task list. It fetches the whole list
// once in Load; every later mutation applies the task the server returned
// instead of fetching again. A Board is not safe for concurrent use.
type Board struct {
	api    TaskAPI
	tasks  []model.Task
	filter Filter
}

func NewBoard(api TaskAPI) *Board {
	return &Board{api: api, filter: FilterAll}
}

func (b *Board) Load(ctx context.Context) error {
	tasks, err := b.api.ListTasks(ctx)
	if err != nil {
		return err
	}
	b.tasks = tasks
	return nil
}

// Add creates a task and puts it in front, matching the server's
// newest-first order.
func (b *Board) Add(ctx context.Context, req model.CreateTaskRequest) (model.Task, error) {
	t, err := b.api.CreateTask(ctx, req)
	if err != nil {
		return t, err
	}
	b.tasks = append([]model.Task{t}, b.tasks...)
	return t, nil
}

func (b *Board) Toggle(ctx context.Context, id string) (model.Task, error) {
	t, err := b.api.ToggleTask(ctx, id)
	if err != nil {
		return t, err
	}
	b.replace(t)
	return t, nil
}

func (b *Board) Edit(ctx context.Context, id string, req model.UpdateTaskRequest) (model.Task, error) {
	t, err := b.api.UpdateTask(ctx, id, req)
	if err != nil {
		return t, err
	}
	b.replace(t)
	return t, nil
}

func (b *Board) Remove(ctx context.Context, id string) error {
	if err := b.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	kept := b.tasks[:0]
	for _, t := range b.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	return nil
}

func (b *Board) replace(t model.Task) {
	for i := range b.tasks {
		if b.tasks[i].ID == t.ID {
			b.tasks[i] = t
			return
		}
	}
}

func (b *Board) SetFilter(f Filter) { b.filter = f }

func (b *Board) Filter() Filter { return b.filter }

// Tasks returns the whole cached list.
func (b *Board) Tasks() []model.Task {
	out := make([]model.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Visible returns the cached tasks that pass the active filter.
func (b *Board) Visible() []model.Task {
	out := make([]model.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		switch {
		case b.filter == FilterActive && t.Completed:
		case b.filter == FilterCompleted && !t.Completed:
		default:
			out = append(out, t)
		}
	}
	return out
}

// Find looks up a cached task by full id or by a unique id prefix.
func (b *Board) Find(ref string) (model.Task, bool) {
	var (
		found model.Task
		n     int
	)
	for _, t := range b.tasks {
		if t.ID == ref {
			return t, true
		}
		if ref != "" && len(ref) < len(t.ID) && t.ID[:len(ref)] == ref {
			found = t
			n++
		}
	}
	return found, n == 1
}

// MinShortID is the shortest id prefix ShortID hands out.
const MinShortID = 8

// ShortID returns the shortest prefix of id, at least MinShortID long, that
// Find resolves to this task alone. ObjectIDs created in the same second
// share their first 8 characters, so the length varies per board.
func (b *Board) ShortID(id string) string {
	n := MinShortID
	for _, t := range b.tasks {
		if t.ID == id {
			continue
		}
		if common := commonPrefixLen(id, t.ID); common+1 > n {
			n = common + 1
		}
	}
	if n >= len(id) {
		return id
	}
	return id[:n]
}

func commonPrefixLen(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

type Progress struct {
	Completed int
	Total     int
	Percent   int
}

func (b *Board) Progress() Progress {
	p := Progress{Total: len(b.tasks)}
	for _, t := range b.tasks {
		if t.Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = (p.Completed*200 + p.Total) / (2 * p.Total)
	}
	return p
}

func (p Progress) String() string {
	if p.Total == 0 {
		return "No tasks yet"
	}
	return fmt.Sprintf("%d%% Complete (%d/%d tasks)", p.Percent, p.Completed, p.Total)
}
