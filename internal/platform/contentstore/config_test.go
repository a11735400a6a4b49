package contentstore

import (
	"errors"
	"testing"
)

func TestConfigNormalizeInfersMode(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Mode
	}{
		{"http", Config{HTTP: HTTPConfig{BaseURL: " https://api.github.com/repos/a/b/ "}}, ModeHTTP},
		{"emulator", Config{Bucket: "audio", EmulatorHost: "http://fake-gcs:4443"}, ModeGCSEmulator},
		{"gcs", Config{Bucket: "audio"}, ModeGCS},
		{"explicit", Config{Mode: " GCS ", HTTP: HTTPConfig{BaseURL: "https://x"}}, ModeGCS},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize().Mode; got != tc.want {
				t.Fatalf("mode: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		code ConfigErrorCode
	}{
		{"empty", Config{}, ConfigErrorInvalidMode},
		{"http without url", Config{Mode: ModeHTTP}, ConfigErrorMissingBaseURL},
		{"http relative url", Config{Mode: ModeHTTP, HTTP: HTTPConfig{BaseURL: "repos/a/b"}}, ConfigErrorInvalidURL},
		{"gcs without bucket", Config{Mode: ModeGCS}, ConfigErrorMissingBucket},
		{"emulator without host", Config{Mode: ModeGCSEmulator, Bucket: "audio"}, ConfigErrorMissingEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Normalize().Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, ce.Code)
			}
			if ce.Error() == "" {
				t.Fatalf("empty message")
			}
		})
	}

	ok := Config{Mode: ModeHTTP, HTTP: HTTPConfig{BaseURL: "https://api.github.com/repos/a/b"}}
	if err := ok.Normalize().Validate(); err != nil {
		t.Fatalf("valid http config: %v", err)
	}
}

func TestResolveConfigFromEnv(t *testing.T) {
	t.Setenv("CONTENT_STORE_MODE", "")
	t.Setenv("CONTENT_STORE_BASE_URL", "https://api.github.com/repos/acme/audio/")
	t.Setenv("CONTENT_STORE_TOKEN", "secret")
	t.Setenv("CONTENT_STORE_BRANCH", "main")
	t.Setenv("AUDIO_GCS_BUCKET_NAME", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	cfg, err := ResolveConfigFromEnv(Config{HTTP: HTTPConfig{CommitMessage: "from file"}})
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Mode != ModeHTTP {
		t.Fatalf("mode: %q", cfg.Mode)
	}
	if cfg.HTTP.BaseURL != "https://api.github.com/repos/acme/audio" || cfg.HTTP.Branch != "main" || cfg.HTTP.Token != "secret" {
		t.Fatalf("http config: %+v", cfg.HTTP)
	}
	if cfg.HTTP.CommitMessage != "from file" {
		t.Fatalf("base value lost: %q", cfg.HTTP.CommitMessage)
	}

	t.Setenv("CONTENT_STORE_MODE", "gcs_emulator")
	t.Setenv("AUDIO_GCS_BUCKET_NAME", "audio")
	if _, err := ResolveConfigFromEnv(Config{}); err == nil {
		t.Fatalf("expected missing emulator host error")
	}
	t.Setenv("STORAGE_EMULATOR_HOST", "http://localhost:4443")
	cfg, err = ResolveConfigFromEnv(Config{})
	if err != nil || cfg.Mode != ModeGCSEmulator || cfg.Bucket != "audio" {
		t.Fatalf("emulator config: %+v err=%v", cfg, err)
	}
}
