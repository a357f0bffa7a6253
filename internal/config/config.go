// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TASKFLOW_DB_PATH or
// TASKFLOW_AUTH_JWT_SECRET for the nested key auth.jwt_secret.
const EnvPrefix = "TASKFLOW"

const devJWTSecret = "dev-secret-change-in-production"

// Queue backends.
const (
	QueueSQLite = "sqlite"
	QueueMemory = "memory"
)

// AuthConfig holds token and identity provider settings.
type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`    // HS256 secret for session tokens
	TokenTTL     time.Duration `mapstructure:"token_ttl"`     // session token lifetime
	CookieSecure bool          `mapstructure:"cookie_secure"` // set Secure on the session cookie
	IssuerURL    string        `mapstructure:"issuer_url"`    // optional external OIDC issuer
	JWKSURL      string        `mapstructure:"jwks_url"`      // JWKS override when discovery is unavailable
	Audience     string        `mapstructure:"audience"`      // required aud for external tokens
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// SMTPConfig holds the outgoing mail relay. An empty Host logs mail instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether a relay is configured.
func (s *SMTPConfig) Enabled() bool { return s.Host != "" }

// QueueConfig holds email queue and retry settings.
type QueueConfig struct {
	Backend             string        `mapstructure:"backend"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	InitialInterval     time.Duration `mapstructure:"initial_interval"`
	MaxInterval         time.Duration `mapstructure:"max_interval"`
	Multiplier          float64       `mapstructure:"multiplier"`
	RandomizationFactor float64       `mapstructure:"randomization_factor"`
	Lease               time.Duration `mapstructure:"lease"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	Workers             int           `mapstructure:"workers"`
	MemorySize          int           `mapstructure:"memory_size"`
}

// MaintenanceConfig schedules background housekeeping. Specs use cron syntax
// including descriptors such as "@every 1m".
type MaintenanceConfig struct {
	RequeueSpec   string        `mapstructure:"requeue_spec"`
	PurgeSpec     string        `mapstructure:"purge_spec"`
	ReadRetention time.Duration `mapstructure:"read_retention"`
}

// Config is the full application configuration.
type Config struct {
	Env                string   `mapstructure:"env"`       // "development" (default) or "production"
	LogLevel           string   `mapstructure:"log_level"` // debug, info, warn, error
	ListenAddr         string   `mapstructure:"listen_addr"`
	DBPath             string   `mapstructure:"db_path"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	WSOriginPatterns   []string `mapstructure:"ws_origin_patterns"`
	RateLimitRPS       float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	// Login attempts get their own, stricter bucket per client. Zero RPS
	// disables it.
	LoginRateLimitRPS   float64 `mapstructure:"login_rate_limit_rps"`
	LoginRateLimitBurst int     `mapstructure:"login_rate_limit_burst"`

	Auth        AuthConfig        `mapstructure:"auth"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", "taskflow.sqlite")
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("ws_origin_patterns", []string{})
	v.SetDefault("rate_limit_rps", 100)
	v.SetDefault("rate_limit_burst", 200)
	v.SetDefault("login_rate_limit_rps", 0.2)
	v.SetDefault("login_rate_limit_burst", 5)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.issuer_url", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.audience", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "taskflow@localhost")

	v.SetDefault("queue.backend", QueueSQLite)
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("queue.initial_interval", 2*time.Second)
	v.SetDefault("queue.max_interval", 5*time.Minute)
	v.SetDefault("queue.multiplier", 2.0)
	v.SetDefault("queue.randomization_factor", 0.2)
	v.SetDefault("queue.lease", 5*time.Minute)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.workers", 1)
	v.SetDefault("queue.memory_size", 1024)

	v.SetDefault("maintenance.requeue_spec", "@every 1m")
	v.SetDefault("maintenance.purge_spec", "@daily")
	v.SetDefault("maintenance.read_retention", 30*24*time.Hour)
}

// LoadFromEnv loads configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load reads the optional config file at path (YAML, JSON or TOML, chosen by
// extension), then applies environment overrides. A missing file is an
// error only when path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.CORSAllowedOrigins = compactNonEmpty(cfg.CORSAllowedOrigins)
	cfg.WSOriginPatterns = compactNonEmpty(cfg.WSOriginPatterns)

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
		cfg.Warnings = append(cfg.Warnings, "auth.jwt_secret not set, using insecure default. Set TASKFLOW_AUTH_JWT_SECRET in production!")
	}
	if !cfg.SMTP.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "smtp.host not set, emails will be logged instead of sent")
	}
	if cfg.Queue.Backend == QueueMemory {
		cfg.Warnings = append(cfg.Warnings, "memory queue selected, pending emails are lost on restart")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// Production mode turns insecure defaults into errors.
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit_rps must be positive and rate_limit_burst at least 1"))
	}
	if c.LoginRateLimitRPS < 0 || (c.LoginRateLimitRPS > 0 && c.LoginRateLimitBurst < 1) {
		errs = append(errs, fmt.Errorf("login_rate_limit_rps must not be negative and login_rate_limit_burst must be at least 1"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be positive"))
	}
	if c.Auth.IssuerURL != "" && c.Auth.Audience == "" {
		errs = append(errs, fmt.Errorf("auth.audience is required when auth.issuer_url is set"))
	}
	switch c.Queue.Backend {
	case QueueSQLite, QueueMemory:
	default:
		errs = append(errs, fmt.Errorf("queue.backend must be %q or %q, got %q", QueueSQLite, QueueMemory, c.Queue.Backend))
	}
	if c.Queue.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("queue.max_attempts must be at least 1"))
	}
	if c.Queue.InitialInterval <= 0 || c.Queue.MaxInterval < c.Queue.InitialInterval {
		errs = append(errs, fmt.Errorf("queue intervals must satisfy 0 < initial_interval <= max_interval"))
	}
	if c.Queue.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("queue.multiplier must be at least 1"))
	}
	if c.Queue.RandomizationFactor < 0 || c.Queue.RandomizationFactor >= 1 {
		errs = append(errs, fmt.Errorf("queue.randomization_factor must be in [0, 1)"))
	}
	if c.Queue.Workers < 1 {
		errs = append(errs, fmt.Errorf("queue.workers must be at least 1"))
	}
	for key, spec := range map[string]string{
		"maintenance.requeue_spec": c.Maintenance.RequeueSpec,
		"maintenance.purge_spec":   c.Maintenance.PurgeSpec,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == devJWTSecret {
			errs = append(errs, fmt.Errorf("auth.jwt_secret must be set in production"))
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			errs = append(errs, fmt.Errorf("CORS wildcard (*) is not allowed in production"))
		}
		if !c.Auth.CookieSecure {
			errs = append(errs, fmt.Errorf("auth.cookie_secure must be true in production"))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
