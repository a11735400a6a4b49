package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigFromYAMLWithEnvOverrides(t *testing.T) {
	t.Setenv("COURSEFRONT_CONFIG_PATH", writeConfig(t, `
log_mode: production
http:
  addr: ":9000"
  shutdown_timeout: 3s
postgres:
  host: db.internal
  name: lessons
content_store:
  http:
    base_url: https://api.example.com/repos/acme/audio/
    branch: main
migration:
  max_attempts: 5
  pause_between_files: 100ms
redis:
  addr: localhost:6379
`))
	t.Setenv("POSTGRES_HOST", "db.override")
	t.Setenv("MIGRATION_PAUSE_MS", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://app.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogMode != "production" || cfg.HTTP.Addr != ":9000" || cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("http/log: %+v %q", cfg.HTTP, cfg.LogMode)
	}
	if cfg.Postgres.Host != "db.override" || cfg.Postgres.Name != "lessons" || cfg.Postgres.Port != "5432" {
		t.Fatalf("postgres: %+v", cfg.Postgres)
	}
	if cfg.ContentStore.Mode != contentstore.ModeHTTP || cfg.ContentStore.HTTP.BaseURL != "https://api.example.com/repos/acme/audio" {
		t.Fatalf("content store: %+v", cfg.ContentStore)
	}
	if cfg.Migration.MaxAttempts != 5 || cfg.Migration.PauseBetweenFiles != 0 {
		t.Fatalf("migration: %+v", cfg.Migration)
	}
	if cfg.Migration.Timeout != 60*time.Second {
		t.Fatalf("migration timeout default: %v", cfg.Migration.Timeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
	if got := cfg.retryPolicy(); got.MaxAttempts != 5 {
		t.Fatalf("retry policy: %+v", got)
	}
}

func TestLoadConfigRequiresContentStore(t *testing.T) {
	t.Setenv("COURSEFRONT_CONFIG_PATH", writeConfig(t, "log_mode: test\n"))
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected content store error")
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	t.Setenv("COURSEFRONT_CONFIG_PATH", writeConfig(t, "http: [unterminated"))
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigClampsMigrationAttempts(t *testing.T) {
	t.Setenv("COURSEFRONT_CONFIG_PATH", writeConfig(t, "log_mode: test\n"))
	t.Setenv("AUDIO_GCS_BUCKET_NAME", "course-audio")
	t.Setenv("MIGRATION_MAX_ATTEMPTS", "0")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Migration.MaxAttempts != 1 || cfg.ContentStore.Mode != contentstore.ModeGCS {
		t.Fatalf("cfg=%+v store=%+v", cfg.Migration, cfg.ContentStore)
	}
}
