package contentstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/coursefront-backend/internal/platform/envutil"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type Mode string

const (
	ModeHTTP        Mode = "http"
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	HTTP HTTPConfig `yaml:"http"`

	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	EmulatorHost string `yaml:"emulator_host"`
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode         ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingBaseURL      ConfigErrorCode = "missing_base_url"
	ConfigErrorMissingBucket       ConfigErrorCode = "missing_bucket"
	ConfigErrorMissingEmulatorHost ConfigErrorCode = "missing_emulator_host"
	ConfigErrorInvalidURL          ConfigErrorCode = "invalid_url"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Mode  string
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid content store config"
	}
	switch e.Code {
	case ConfigErrorInvalidMode:
		return fmt.Sprintf("invalid CONTENT_STORE_MODE=%q (allowed: %q, %q, %q)", e.Mode, ModeHTTP, ModeGCS, ModeGCSEmulator)
	case ConfigErrorMissingBaseURL:
		return fmt.Sprintf("CONTENT_STORE_MODE=%q requires CONTENT_STORE_BASE_URL", e.Mode)
	case ConfigErrorMissingBucket:
		return fmt.Sprintf("CONTENT_STORE_MODE=%q requires AUDIO_GCS_BUCKET_NAME", e.Mode)
	case ConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("CONTENT_STORE_MODE=%q requires STORAGE_EMULATOR_HOST", e.Mode)
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid url %q for CONTENT_STORE_MODE=%q; expected absolute URL", e.Value, e.Mode)
	default:
		return "invalid content store config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveConfigFromEnv overlays CONTENT_STORE_* and GCS env vars on base.
// Unset variables keep base's values.
func ResolveConfigFromEnv(base Config) (Config, error) {
	cfg := base
	cfg.Mode = Mode(envutil.String("CONTENT_STORE_MODE", string(cfg.Mode)))
	cfg.HTTP.BaseURL = envutil.String("CONTENT_STORE_BASE_URL", cfg.HTTP.BaseURL)
	cfg.HTTP.Token = envutil.String("CONTENT_STORE_TOKEN", cfg.HTTP.Token)
	cfg.HTTP.Branch = envutil.String("CONTENT_STORE_BRANCH", cfg.HTTP.Branch)
	cfg.HTTP.CommitMessage = envutil.String("CONTENT_STORE_COMMIT_MESSAGE", cfg.HTTP.CommitMessage)
	cfg.HTTP.CommitterName = envutil.String("CONTENT_STORE_COMMITTER_NAME", cfg.HTTP.CommitterName)
	cfg.HTTP.CommitterEmail = envutil.String("CONTENT_STORE_COMMITTER_EMAIL", cfg.HTTP.CommitterEmail)
	cfg.HTTP.Timeout = envutil.Seconds("CONTENT_STORE_TIMEOUT_SECONDS", cfg.HTTP.Timeout)
	cfg.Bucket = envutil.String("AUDIO_GCS_BUCKET_NAME", cfg.Bucket)
	cfg.Prefix = envutil.String("AUDIO_GCS_PREFIX", cfg.Prefix)
	cfg.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize fills the mode when it can be inferred and trims inputs.
func (cfg Config) Normalize() Config {
	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	cfg.HTTP.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.HTTP.BaseURL), "/")
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	cfg.EmulatorHost = strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	if cfg.Mode == "" {
		switch {
		case cfg.HTTP.BaseURL != "":
			cfg.Mode = ModeHTTP
		case cfg.EmulatorHost != "":
			cfg.Mode = ModeGCSEmulator
		case cfg.Bucket != "":
			cfg.Mode = ModeGCS
		}
	}
	return cfg
}

func (cfg Config) Validate() error {
	switch cfg.Mode {
	case ModeHTTP:
		if cfg.HTTP.BaseURL == "" {
			return &ConfigError{Code: ConfigErrorMissingBaseURL, Mode: string(cfg.Mode)}
		}
		return validateAbsoluteURL(cfg.Mode, cfg.HTTP.BaseURL)
	case ModeGCS:
		if cfg.Bucket == "" {
			return &ConfigError{Code: ConfigErrorMissingBucket, Mode: string(cfg.Mode)}
		}
		return nil
	case ModeGCSEmulator:
		if cfg.Bucket == "" {
			return &ConfigError{Code: ConfigErrorMissingBucket, Mode: string(cfg.Mode)}
		}
		if cfg.EmulatorHost == "" {
			return &ConfigError{Code: ConfigErrorMissingEmulatorHost, Mode: string(cfg.Mode)}
		}
		return validateAbsoluteURL(cfg.Mode, cfg.EmulatorHost)
	default:
		return &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
}

func validateAbsoluteURL(mode Mode, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Mode: string(mode), Value: raw, Cause: err}
	}
	return nil
}

// New builds the Store selected by cfg.Mode.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeHTTP:
		return NewHTTPStore(cfg.HTTP, log)
	default:
		return NewGCSStore(ctx, cfg, log)
	}
}
