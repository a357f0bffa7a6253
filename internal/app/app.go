// Package app provides application-level wiring and dependency injection
// for the taskflow service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/api"
	"taskflow/internal/config"
	internaldb "taskflow/internal/db"
	"taskflow/internal/db/repository"
	"taskflow/internal/mail"
	"taskflow/internal/middleware"
	"taskflow/internal/push"
	"taskflow/internal/queue"
	"taskflow/internal/service/notification"
	"taskflow/internal/service/security"
	"taskflow/internal/service/task"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Pools  *internaldb.Pools
	Logger *slog.Logger
	// Sender overrides the mail sender chosen from Cfg.SMTP.
	Sender mail.Sender
}

// Services groups the service pointers the API handler and CLI need.
type Services struct {
	Task         *task.Service
	Notification *notification.Service
	User         *security.UserService
	Role         *security.RoleService
	Audit        *security.AuditService
}

// App holds the fully-wired application.
type App struct {
	Services   Services
	Registry   *push.MemoryRegistry
	Queue      queue.Queue
	Scheduler  *notification.Scheduler
	Issuer     *middleware.TokenIssuer
	Validators []middleware.JWTValidator

	cfg         *config.Config
	pools       *internaldb.Pools
	emailWorker queue.Handler
	durable     *queue.DurableQueue // nil with the memory backend
	memory      *queue.MemoryQueue  // nil with the sqlite backend
	logger      *slog.Logger
}

// New wires repositories, queue, push registry and services from deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	// === Repositories (write-pool) ===
	roleRepo := repository.NewRoleRepo(deps.Pools.Write)
	userRepo := repository.NewUserRepo(deps.Pools.Write)
	taskRepo := repository.NewTaskRepo(deps.Pools.Write)
	noteRepo := repository.NewNotificationRepo(deps.Pools.Write)
	auditRepo := repository.NewAuditRepo(deps.Pools.Write)
	emailJobRepo := repository.NewEmailJobRepo(deps.Pools.Write)

	// === Repositories (read-pool) ===
	auditReader := repository.NewAuditRepo(deps.Pools.Read)

	// === Email queue ===
	policy := queue.RetryPolicy{
		MaxAttempts:         cfg.Queue.MaxAttempts,
		InitialInterval:     cfg.Queue.InitialInterval,
		MaxInterval:         cfg.Queue.MaxInterval,
		Multiplier:          cfg.Queue.Multiplier,
		RandomizationFactor: cfg.Queue.RandomizationFactor,
	}
	a := &App{cfg: cfg, pools: deps.Pools, logger: logger}
	var requeuer notification.LeaseRequeuer
	switch cfg.Queue.Backend {
	case config.QueueMemory:
		a.memory = queue.NewMemoryQueue(cfg.Queue.MemorySize, policy)
		a.Queue = a.memory
	default:
		a.durable = queue.NewDurableQueue(emailJobRepo, policy,
			queue.WithLease(cfg.Queue.Lease),
			queue.WithPollInterval(cfg.Queue.PollInterval),
		)
		a.Queue = a.durable
		requeuer = a.durable
	}

	sender := deps.Sender
	if sender == nil {
		if cfg.SMTP.Enabled() {
			s, err := mail.NewSMTPSender(mail.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			})
			if err != nil {
				return nil, fmt.Errorf("smtp sender: %w", err)
			}
			sender = s
		} else {
			sender = mail.NewLogSender(logger.With("component", "mail"))
		}
	}
	a.emailWorker = notification.EmailHandler(noteRepo, sender)

	// === Notifications ===
	a.Registry = push.NewMemoryRegistry()
	dispatcher := notification.NewDispatcher(noteRepo, userRepo, a.Registry, a.Queue, logger.With("component", "dispatcher"))
	notifier := notification.NewService(noteRepo, dispatcher, logger.With("component", "notifications"))
	a.Scheduler = notification.NewScheduler(noteRepo, requeuer, cfg.Maintenance.ReadRetention, logger.With("component", "scheduler"))

	// === Services ===
	userSvc := security.NewUserService(userRepo, roleRepo, auditRepo)
	a.Services = Services{
		Task:         task.NewService(taskRepo, userRepo, roleRepo, notifier, auditRepo, logger.With("component", "tasks")),
		Notification: notifier,
		User:         userSvc,
		Role:         security.NewRoleService(roleRepo, auditRepo),
		Audit:        security.NewAuditService(auditReader),
	}

	// === Tokens ===
	a.Issuer = middleware.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	local, err := middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	a.Validators = []middleware.JWTValidator{local}
	if cfg.Auth.OIDCEnabled() {
		oidcValidator, err := newOIDCValidator(ctx, cfg.Auth)
		if err != nil {
			return nil, err
		}
		a.Validators = append(a.Validators, oidcValidator)
	}

	if a.durable != nil {
		if err := recoverEmailJobs(ctx, a.durable, logger); err != nil {
			logger.Warn("recover email jobs failed", "error", err)
		}
	}
	return a, nil
}

func newOIDCValidator(ctx context.Context, auth config.AuthConfig) (*middleware.OIDCValidator, error) {
	if auth.JWKSURL != "" {
		return middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience), nil
	}
	v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience)
	if err != nil {
		return nil, fmt.Errorf("oidc validator: %w", err)
	}
	return v, nil
}

// Router returns the HTTP handler for the REST API and the push socket.
func (a *App) Router(ctx context.Context) http.Handler {
	h := api.NewHandler(
		a.Services.Task,
		a.Services.Notification,
		a.Services.User,
		a.Services.Role,
		a.Services.Audit,
		a.Issuer,
		a.cfg.Auth.CookieSecure,
		a.logger.With("component", "api"),
	)
	return api.NewRouter(ctx, h, api.RouterConfig{
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			Burst:             a.cfg.RateLimitBurst,
		},
		LoginRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.LoginRateLimitRPS,
			Burst:             a.cfg.LoginRateLimitBurst,
		},
		Resolver:   a.Services.User,
		Validators: a.Validators,
		WebSocket:  push.NewHandler(a.Registry, a.cfg.WSOriginPatterns, a.logger.With("component", "push")),
		Health:     a.pools.Ping,
		Logger:     a.logger,
	})
}

// RunWorkers drains the email queue with the configured number of workers
// until ctx is done.
func (a *App) RunWorkers(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range a.cfg.Queue.Workers {
		w := queue.NewWorker(a.Queue, a.emailWorker, a.logger.With("component", "email-worker", "worker", i))
		g.Go(func() error { return w.Run(ctx) })
	}
	err := g.Wait()
	if a.memory != nil {
		// Nothing drains the buffer any more.
		a.memory.Close()
	}
	return err
}

// Durable reports whether email jobs survive a restart, which is required
// for running workers in a separate process.
func (a *App) Durable() bool { return a.durable != nil }
