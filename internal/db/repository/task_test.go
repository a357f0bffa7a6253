package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func TestTaskRepo_CreateDefaults(t *testing.T) {
	f := setupFixture(t)
	alice, bob := f.pair(t)

	tk := f.task(t, alice.ID, bob.ID)
	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, domain.TaskStatusPending, tk.Status)
	assert.Equal(t, domain.PriorityMedium, tk.Priority)
	assert.Equal(t, alice.ID, tk.AssignerID)
	assert.Equal(t, bob.ID, tk.AssigneeID)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.Equal(t, tk.CreatedAt, tk.UpdatedAt)
}

func TestTaskRepo_GetNotFound(t *testing.T) {
	f := setupFixture(t)
	_, err := f.tasks.GetByID(context.Background(), "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, `task "nope" not found`, nf.Message)
}

func TestTaskRepo_ListForUser(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	carol := f.user(t, "carol", alice.RoleID)

	f.task(t, alice.ID, bob.ID)
	f.task(t, bob.ID, alice.ID)
	f.task(t, bob.ID, carol.ID)

	all, err := f.tasks.ListForUser(ctx, alice.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assigned, err := f.tasks.ListForUser(ctx, alice.ID, domain.TaskFilter{Relation: "assigned"})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, bob.ID, assigned[0].AssigneeID)

	mine, err := f.tasks.ListForUser(ctx, carol.ID, domain.TaskFilter{Relation: "assignee"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	done, err := f.tasks.ListForUser(ctx, alice.ID, domain.TaskFilter{Status: domain.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestTaskRepo_TransitionStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	tk := f.task(t, alice.ID, bob.ID)

	var seen domain.TaskStatus
	updated, err := f.tasks.TransitionStatus(ctx, tk.ID, domain.TaskStatusInProgress, func(cur *domain.Task) error {
		seen = cur.Status
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, seen)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(tk.UpdatedAt))

	stored, err := f.tasks.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, stored.Status)
}

func TestTaskRepo_GuardRejectionLeavesRowUntouched(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	tk := f.task(t, alice.ID, bob.ID)

	boom := errors.New("rejected")
	_, err := f.tasks.TransitionStatus(ctx, tk.ID, domain.TaskStatusCompleted, func(*domain.Task) error { return boom })
	require.ErrorIs(t, err, boom)

	_, _, err = f.tasks.Update(ctx, tk.ID, func(*domain.Task) error { return boom }, func(t *domain.Task) { t.Title = "changed" })
	require.ErrorIs(t, err, boom)

	_, err = f.tasks.Delete(ctx, tk.ID, func(*domain.Task) error { return boom })
	require.ErrorIs(t, err, boom)

	stored, err := f.tasks.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, tk.Title, stored.Title)
}

func TestTaskRepo_ConcurrentTransitionsSerialize(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	tk := f.task(t, alice.ID, bob.ID)

	guard := func(cur *domain.Task) error {
		return domain.ValidateTransition(cur.Status, domain.TaskStatusCompleted)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.tasks.TransitionStatus(ctx, tk.ID, domain.TaskStatusCompleted, guard); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestTaskRepo_Update(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	carol := f.user(t, "carol", alice.RoleID)
	tk := f.task(t, alice.ID, bob.ID)

	before, after, err := f.tasks.Update(ctx, tk.ID, nil, func(t *domain.Task) {
		t.Title = "Rewrite report"
		t.Priority = domain.PriorityHigh
		t.AssigneeID = carol.ID
		t.Status = domain.TaskStatusCompleted // not a mutable column
	})
	require.NoError(t, err)
	assert.Equal(t, tk.Title, before.Title)
	assert.Equal(t, bob.ID, before.AssigneeID)
	assert.Equal(t, "Rewrite report", after.Title)

	stored, err := f.tasks.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rewrite report", stored.Title)
	assert.Equal(t, domain.PriorityHigh, stored.Priority)
	assert.Equal(t, carol.ID, stored.AssigneeID)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, tk.Deadline, stored.Deadline)
}

func TestTaskRepo_Delete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice, bob := f.pair(t)
	tk := f.task(t, alice.ID, bob.ID)

	deleted, err := f.tasks.Delete(ctx, tk.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, deleted.ID)

	_, err = f.tasks.GetByID(ctx, tk.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = f.tasks.Delete(ctx, tk.ID, nil)
	require.ErrorAs(t, err, &nf)
}
