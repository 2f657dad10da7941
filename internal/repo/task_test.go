package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/internal/repo"
	"github.com/BuzzLyutic/personal-tasks/internal/testutil"
)

type stores struct {
	tasks repo.TaskRepository
	users repo.UserRepository
	reset func(t *testing.T)
}

// Both backends must behave the same; every case below runs on each.
func backends(t *testing.T) map[string]stores {
	pool := testutil.SetupPostgres(t)
	db := testutil.SetupMongo(t)
	return map[string]stores{
		"postgres": {
			tasks: repo.NewTaskRepo(pool),
			users: repo.NewUserRepo(pool),
			reset: func(t *testing.T) { testutil.TruncateTables(t, pool) },
		},
		"mongo": {
			tasks: repo.NewMongoTaskRepo(db),
			users: repo.NewMongoUserRepo(db),
			reset: func(t *testing.T) { testutil.DropMongo(t, db) },
		},
	}
}

func createUser(t *testing.T, users repo.UserRepository, name string) model.User {
	t.Helper()
	u, err := users.Create(context.Background(), model.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	return u
}

func TestUserRepositories(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.reset(t)

			alice := createUser(t, s.users, "alice")

			t.Run("find by username", func(t *testing.T) {
				found, err := s.users.FindByUsername(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, alice.ID, found.ID)
				assert.Equal(t, "hash", found.PasswordHash)
			})

			t.Run("unknown username", func(t *testing.T) {
				_, err := s.users.FindByUsername(ctx, "nobody")
				assert.ErrorIs(t, err, repo.ErrorNotFound)
			})

			t.Run("exists by username or email", func(t *testing.T) {
				ok, err := s.users.Exists(ctx, "alice", "other@example.com")
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = s.users.Exists(ctx, "other", "alice@example.com")
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = s.users.Exists(ctx, "other", "other@example.com")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("duplicate username", func(t *testing.T) {
				_, err := s.users.Create(ctx, model.User{Username: "alice", Email: "x@example.com", PasswordHash: "h"})
				assert.ErrorIs(t, err, repo.ErrorConflict)
			})

			t.Run("duplicate email", func(t *testing.T) {
				_, err := s.users.Create(ctx, model.User{Username: "x", Email: "alice@example.com", PasswordHash: "h"})
				assert.ErrorIs(t, err, repo.ErrorConflict)
			})

			t.Run("concurrent registrations of one name", func(t *testing.T) {
				const goroutines = 10
				var wg sync.WaitGroup
				errs := make([]error, goroutines)
				for i := 0; i < goroutines; i++ {
					wg.Add(1)
					go func(idx int) {
						defer wg.Done()
						_, errs[idx] = s.users.Create(ctx, model.User{
							Username:     "racer",
							Email:        "racer@example.com",
							PasswordHash: "h",
						})
					}(i)
				}
				wg.Wait()

				succeeded := 0
				for _, err := range errs {
					if err == nil {
						succeeded++
					} else {
						assert.ErrorIs(t, err, repo.ErrorConflict)
					}
				}
				assert.Equal(t, 1, succeeded, "exactly one registration should win")
			})
		})
	}
}

func TestTaskRepositories(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.reset(t)
			alice := createUser(t, s.users, "alice")
			bob := createUser(t, s.users, "bob")

			due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
			first, err := s.tasks.Create(ctx, model.Task{
				Owner:    alice.ID,
				Title:    "Buy milk",
				Priority: model.PriorityLow,
				DueDate:  &due,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.False(t, first.Completed)
			assert.Equal(t, alice.ID, first.Owner)
			require.NotNil(t, first.DueDate)
			assert.True(t, due.Equal(first.DueDate.UTC()))

			time.Sleep(5 * time.Millisecond)
			second, err := s.tasks.Create(ctx, model.Task{Owner: alice.ID, Title: "Walk dog", Priority: model.PriorityHigh})
			require.NoError(t, err)

			t.Run("list is newest first and scoped", func(t *testing.T) {
				tasks, err := s.tasks.List(ctx, alice.ID)
				require.NoError(t, err)
				require.Len(t, tasks, 2)
				assert.Equal(t, second.ID, tasks[0].ID)
				assert.Equal(t, first.ID, tasks[1].ID)

				others, err := s.tasks.List(ctx, bob.ID)
				require.NoError(t, err)
				assert.Empty(t, others)
				assert.NotNil(t, others)
			})

			t.Run("other owner sees nothing", func(t *testing.T) {
				_, err := s.tasks.Get(ctx, bob.ID, first.ID)
				assert.ErrorIs(t, err, repo.ErrorNotFound)

				title := "hijacked"
				_, err = s.tasks.Update(ctx, bob.ID, first.ID, model.TaskPatch{Title: &title})
				assert.ErrorIs(t, err, repo.ErrorNotFound)

				_, err = s.tasks.Toggle(ctx, bob.ID, first.ID)
				assert.ErrorIs(t, err, repo.ErrorNotFound)

				assert.ErrorIs(t, s.tasks.Delete(ctx, bob.ID, first.ID), repo.ErrorNotFound)

				still, err := s.tasks.Get(ctx, alice.ID, first.ID)
				require.NoError(t, err)
				assert.Equal(t, "Buy milk", still.Title)
				assert.False(t, still.Completed)
			})

			t.Run("malformed id is not found", func(t *testing.T) {
				_, err := s.tasks.Get(ctx, alice.ID, "not-an-id")
				assert.ErrorIs(t, err, repo.ErrorNotFound)
			})

			t.Run("update patches only given fields", func(t *testing.T) {
				title := "Buy oat milk"
				updated, err := s.tasks.Update(ctx, alice.ID, first.ID, model.TaskPatch{Title: &title})
				require.NoError(t, err)
				assert.Equal(t, "Buy oat milk", updated.Title)
				assert.Equal(t, model.PriorityLow, updated.Priority)
				assert.NotNil(t, updated.DueDate)

				cleared, err := s.tasks.Update(ctx, alice.ID, first.ID, model.TaskPatch{ClearDueDate: true})
				require.NoError(t, err)
				assert.Nil(t, cleared.DueDate)
			})

			t.Run("toggle flips both ways", func(t *testing.T) {
				on, err := s.tasks.Toggle(ctx, alice.ID, first.ID)
				require.NoError(t, err)
				assert.True(t, on.Completed)

				stats, err := s.tasks.Stats(ctx, alice.ID)
				require.NoError(t, err)
				assert.Equal(t, 2, stats.Total)
				assert.Equal(t, 1, stats.Completed)

				off, err := s.tasks.Toggle(ctx, alice.ID, first.ID)
				require.NoError(t, err)
				assert.False(t, off.Completed)
			})

			t.Run("idempotency keys are per owner", func(t *testing.T) {
				require.NoError(t, s.tasks.SaveIdempotencyKey(ctx, alice.ID, "k1", first.ID))

				id, err := s.tasks.GetIdempotencyKey(ctx, alice.ID, "k1")
				require.NoError(t, err)
				assert.Equal(t, first.ID, id)

				_, err = s.tasks.GetIdempotencyKey(ctx, bob.ID, "k1")
				assert.ErrorIs(t, err, repo.ErrorNotFound)
			})

			t.Run("delete then everything is not found", func(t *testing.T) {
				require.NoError(t, s.tasks.Delete(ctx, alice.ID, second.ID))

				assert.ErrorIs(t, s.tasks.Delete(ctx, alice.ID, second.ID), repo.ErrorNotFound)
				_, err := s.tasks.Toggle(ctx, alice.ID, second.ID)
				assert.ErrorIs(t, err, repo.ErrorNotFound)
				title := "again"
				_, err = s.tasks.Update(ctx, alice.ID, second.ID, model.TaskPatch{Title: &title})
				assert.ErrorIs(t, err, repo.ErrorNotFound)
			})
		})
	}
}

func TestTaskRepo_UnknownOwner(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	testutil.TruncateTables(t, pool)

	_, err := repo.NewTaskRepo(pool).Create(context.Background(), model.Task{
		Owner:    "00000000-0000-0000-0000-000000000000",
		Title:    "orphan",
		Priority: model.PriorityMedium,
	})
	assert.ErrorIs(t, err, repo.ErrorUnknownOwner)
}
