package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	internaldb "taskflow/internal/db"
	"taskflow/internal/db/repository"
	"taskflow/internal/domain"
	"taskflow/internal/push"
	"taskflow/internal/queue"
)

type recordingConn struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (c *recordingConn) Send(_ context.Context, event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, data)
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// stalledConn never completes a write on its own.
type stalledConn struct{}

func (stalledConn) Send(ctx context.Context, _ string, _ any) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingQueue struct{ queue.Queue }

func (failingQueue) Enqueue(context.Context, domain.EmailJob) error {
	return errors.New("broker unavailable")
}

type testEnv struct {
	dispatcher *Dispatcher
	notes      *repository.NotificationRepo
	users      *repository.UserRepo
	registry   *push.MemoryRegistry
	queue      *queue.MemoryQueue
	svc        *Service
	alice      *domain.User
	bob        *domain.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEnv(t *testing.T) *testEnv {
	return setupEnvWithQueue(t, nil)
}

// setupEnvWithQueue wires the service against SQLite. A nil q uses a
// MemoryQueue.
func setupEnvWithQueue(t *testing.T, q queue.Queue) *testEnv {
	t.Helper()
	ctx := context.Background()
	pools := internaldb.OpenTestSQLite(t)

	roles := repository.NewRoleRepo(pools.Write)
	users := repository.NewUserRepo(pools.Write)
	notes := repository.NewNotificationRepo(pools.Write)

	role, err := roles.Create(ctx, &domain.Role{Name: "member", Permissions: []domain.Permission{domain.PermUpdateTaskStatus}})
	require.NoError(t, err)
	alice, err := users.Create(ctx, &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", RoleID: role.ID})
	require.NoError(t, err)
	bob, err := users.Create(ctx, &domain.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", RoleID: role.ID})
	require.NoError(t, err)

	mem := queue.NewMemoryQueue(16, queue.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond})
	if q == nil {
		q = mem
	}
	registry := push.NewMemoryRegistry()
	dispatcher := NewDispatcher(notes, users, registry, q, discardLogger())

	return &testEnv{
		dispatcher: dispatcher,
		notes:      notes,
		users:      users,
		registry:   registry,
		queue:      mem,
		svc:        NewService(notes, dispatcher, discardLogger()),
		alice:      alice,
		bob:        bob,
	}
}

func (e *testEnv) task() domain.Task {
	return domain.Task{
		ID:         "task-1",
		Title:      "Fix bug",
		Priority:   domain.PriorityHigh,
		Deadline:   time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Status:     domain.TaskStatusPending,
		AssignerID: e.alice.ID,
		AssigneeID: e.bob.ID,
	}
}

func asUser(u *domain.User) context.Context {
	return domain.WithPrincipal(context.Background(), &domain.Principal{ID: u.ID, Name: u.Name, Email: u.Email})
}
