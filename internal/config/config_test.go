package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	tc := cfg.Transcode
	if tc.BatchSize != 20 || tc.WindowSize != 5 || tc.MaxPollAttempts != 60 || tc.MaxHeight != 720 {
		t.Errorf("unexpected tuning defaults: %+v", tc)
	}
	if tc.PollInterval != 15*time.Second {
		t.Errorf("poll interval = %v, want 15s", tc.PollInterval)
	}
	if tc.CallDelay != 500*time.Millisecond {
		t.Errorf("call delay = %v, want 500ms", tc.CallDelay)
	}
	if tc.RateLimitBackoff != 5*time.Second {
		t.Errorf("rate limit backoff = %v, want 5s", tc.RateLimitBackoff)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := strings.Join([]string{
		"database_url: postgres://localhost/pool",
		"job_service:",
		"  url: https://jobs.example.com",
		"output:",
		"  destination: s3://bucket/transcoded/",
		"  public_url: https://cdn.example.com/transcoded/",
		"transcode:",
		"  batch_size: 7",
		"  poll_interval: 2s",
		"kafka:",
		"  brokers: [\"k1:9092\", \"k2:9092\"]",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POOLTX_TRANSCODE_WINDOW_SIZE", "3")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Transcode.BatchSize != 7 {
		t.Errorf("batch size = %d, want 7", cfg.Transcode.BatchSize)
	}
	if cfg.Transcode.WindowSize != 3 {
		t.Errorf("window size = %d, want 3 from env", cfg.Transcode.WindowSize)
	}
	if cfg.Transcode.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v, want 2s", cfg.Transcode.PollInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v, want 2 entries", cfg.Kafka.Brokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing database_url")
	}
}

func TestTranscodeConfig_Validate(t *testing.T) {
	good := TranscodeConfig{BatchSize: 20, WindowSize: 5, MaxPollAttempts: 60, MaxHeight: 720}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := good
	bad.WindowSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero window size")
	}

	bad = good
	bad.CallDelay = -time.Second
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative call delay")
	}
}
