package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursefront-backend/internal/data/db"
	httpapi "github.com/yungbote/coursefront-backend/internal/http"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
	"github.com/yungbote/coursefront-backend/internal/platform/envutil"
	"github.com/yungbote/coursefront-backend/internal/realtime/bus"
	"github.com/yungbote/coursefront-backend/internal/services"
)

type MigrationConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffStep       time.Duration `yaml:"backoff_step"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	PauseBetweenFiles time.Duration `yaml:"pause_between_files"`
	// Timeout bounds the copy that runs ahead of a reorder.
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	LogMode      string                   `yaml:"log_mode"`
	HTTP         httpapi.ServerConfig     `yaml:"http"`
	CORSOrigins  []string                 `yaml:"cors_origins"`
	Postgres     db.PostgresConfig        `yaml:"postgres"`
	AutoMigrate  bool                     `yaml:"auto_migrate"`
	ContentStore contentstore.Config      `yaml:"content_store"`
	Migration    MigrationConfig          `yaml:"migration"`
	Redis        bus.Config               `yaml:"redis"`
	Otel         observability.OtelConfig `yaml:"otel"`
	MetricsAddr  string                   `yaml:"metrics_addr"`
}

func defaultConfig() Config {
	retry := contentstore.DefaultRetryPolicy()
	mig := services.DefaultAudioMigrationConfig()
	return Config{
		LogMode: "development",
		HTTP: httpapi.ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
		},
		Postgres: db.PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "coursefront",
			SSLMode: "disable",
		},
		AutoMigrate: true,
		Migration: MigrationConfig{
			MaxAttempts:       retry.MaxAttempts,
			BackoffStep:       retry.Step,
			MaxBackoff:        retry.MaxDelay,
			PauseBetweenFiles: mig.PauseBetweenFiles,
			Timeout:           services.DefaultReorderCoordinatorConfig().MigrationTimeout,
		},
		Otel: observability.OtelConfig{ServiceName: "coursefront-backend"},
	}
}

// LoadConfig reads an optional YAML file (COURSEFRONT_CONFIG_PATH, else
// ./config/config.yaml when present) and then applies env overrides.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("COURSEFRONT_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(&cfg)

	store, err := contentstore.ResolveConfigFromEnv(cfg.ContentStore)
	if err != nil {
		return Config{}, err
	}
	cfg.ContentStore = store

	if cfg.Migration.MaxAttempts < 1 {
		cfg.Migration.MaxAttempts = 1
	}
	if cfg.Migration.PauseBetweenFiles < 0 {
		cfg.Migration.PauseBetweenFiles = 0
	}
	if cfg.Migration.Timeout <= 0 {
		cfg.Migration.Timeout = services.DefaultReorderCoordinatorConfig().MigrationTimeout
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if v := envutil.String("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Postgres.Name)
	cfg.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)
	cfg.AutoMigrate = envutil.Bool("POSTGRES_AUTO_MIGRATE", cfg.AutoMigrate)

	cfg.Migration.MaxAttempts = envutil.Int("MIGRATION_MAX_ATTEMPTS", cfg.Migration.MaxAttempts)
	cfg.Migration.BackoffStep = envutil.Millis("MIGRATION_BACKOFF_STEP_MS", cfg.Migration.BackoffStep)
	cfg.Migration.MaxBackoff = envutil.Millis("MIGRATION_MAX_BACKOFF_MS", cfg.Migration.MaxBackoff)
	cfg.Migration.PauseBetweenFiles = envutil.Millis("MIGRATION_PAUSE_MS", cfg.Migration.PauseBetweenFiles)
	cfg.Migration.Timeout = envutil.Seconds("MIGRATION_TIMEOUT_SECONDS", cfg.Migration.Timeout)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.Otel.Environment)
	cfg.Otel.Version = envutil.String("SERVICE_VERSION", cfg.Otel.Version)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) retryPolicy() contentstore.RetryPolicy {
	return contentstore.RetryPolicy{
		MaxAttempts: c.Migration.MaxAttempts,
		Step:        c.Migration.BackoffStep,
		MaxDelay:    c.Migration.MaxBackoff,
	}
}

func (c Config) audioMigrationConfig() services.AudioMigrationConfig {
	return services.AudioMigrationConfig{
		Retry:             c.retryPolicy(),
		PauseBetweenFiles: c.Migration.PauseBetweenFiles,
	}
}
