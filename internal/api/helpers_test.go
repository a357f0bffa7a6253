package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	internaldb "taskflow/internal/db"
	"taskflow/internal/db/repository"
	"taskflow/internal/domain"
	"taskflow/internal/middleware"
	"taskflow/internal/push"
	"taskflow/internal/queue"
	"taskflow/internal/service/notification"
	"taskflow/internal/service/security"
	"taskflow/internal/service/task"
)

const (
	testSecret   = "api-test-secret"
	testPassword = "correct-horse"
)

type testEnv struct {
	router   http.Handler
	issuer   *middleware.TokenIssuer
	registry *push.MemoryRegistry
	queue    *queue.MemoryQueue

	admin    *domain.User
	assigner *domain.User
	assignee *domain.User
	outsider *domain.User
	viewer   *domain.User // role without UPDATE_TASK_STATUS
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pools := internaldb.OpenTestSQLite(t)
	logger := discardLogger()

	roleRepo := repository.NewRoleRepo(pools.Write)
	userRepo := repository.NewUserRepo(pools.Write)
	taskRepo := repository.NewTaskRepo(pools.Write)
	noteRepo := repository.NewNotificationRepo(pools.Write)
	auditRepo := repository.NewAuditRepo(pools.Write)

	adminRole, err := roleRepo.Create(ctx, &domain.Role{Name: "admin", Permissions: domain.AllPermissions})
	require.NoError(t, err)
	member, err := roleRepo.Create(ctx, &domain.Role{Name: "member", Permissions: []domain.Permission{
		domain.PermCreateTask, domain.PermUpdateTask, domain.PermUpdateTaskStatus, domain.PermViewTask,
	}})
	require.NoError(t, err)
	viewerRole, err := roleRepo.Create(ctx, &domain.Role{Name: "viewer", Permissions: []domain.Permission{domain.PermViewTask}})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	mk := func(name, roleID string) *domain.User {
		u, err := userRepo.Create(ctx, &domain.User{Name: name, Email: name + "@example.com", PasswordHash: string(hash), RoleID: roleID})
		require.NoError(t, err)
		return u
	}

	q := queue.NewMemoryQueue(64, queue.DefaultRetryPolicy())
	registry := push.NewMemoryRegistry()
	dispatcher := notification.NewDispatcher(noteRepo, userRepo, registry, q, logger)
	notifier := notification.NewService(noteRepo, dispatcher, logger)

	userSvc := security.NewUserService(userRepo, roleRepo, auditRepo)
	issuer := middleware.NewTokenIssuer(testSecret, time.Hour)
	validator, err := middleware.NewHS256Validator(testSecret)
	require.NoError(t, err)

	h := NewHandler(
		task.NewService(taskRepo, userRepo, roleRepo, notifier, auditRepo, logger),
		notifier,
		userSvc,
		security.NewRoleService(roleRepo, auditRepo),
		security.NewAuditService(auditRepo),
		issuer,
		false,
		logger,
	)
	rcfg := RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		RateLimit:          middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Resolver:           userSvc,
		Validators:         []middleware.JWTValidator{validator},
		WebSocket:          push.NewHandler(registry, nil, logger),
		Health:             pools.Ping,
		Logger:             logger,
	}
	for _, opt := range opts {
		opt(&rcfg)
	}
	router := NewRouter(ctx, h, rcfg)

	return &testEnv{
		router:   router,
		issuer:   issuer,
		registry: registry,
		queue:    q,
		admin:    mk("admin", adminRole.ID),
		assigner: mk("alice", member.ID),
		assignee: mk("bob", member.ID),
		outsider: mk("carol", member.ID),
		viewer:   mk("victor", viewerRole.ID),
	}
}

func (e *testEnv) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := e.issuer.Issue(u.ID, u.Email, u.Name)
	require.NoError(t, err)
	return tok
}

// do sends a request as u (nil for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, u *domain.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, u))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func (e *testEnv) createTask(t *testing.T) taskResponse {
	t.Helper()
	rec := e.do(t, e.assigner, http.MethodPost, "/task", map[string]string{
		"title":       "Fix login bug",
		"description": "Users cannot log in with SSO",
		"priority":    "HIGH",
		"deadline":    futureDate(5),
		"assigneeId":  e.assignee.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[taskResponse](t, rec)
}
