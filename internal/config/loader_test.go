package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carbonlab/perfbench/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.NewLoader().Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 10*time.Second || cfg.LoadTimeout != 15*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.Timeout, cfg.LoadTimeout)
	}
	if cfg.PredictionRequests != 100 || cfg.TradingOrders != 50 {
		t.Errorf("sequential counts = %d/%d", cfg.PredictionRequests, cfg.TradingOrders)
	}
	if cfg.LoadUsers != 20 || cfg.LoadRequestsPerUser != 10 {
		t.Errorf("load sizing = %dx%d", cfg.LoadUsers, cfg.LoadRequestsPerUser)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"--base-url", "http://staging:8080",
		"--users", "5",
		"-n", "3",
		"--header", "Authorization=Bearer abc",
		"--scenario", "load",
		"--threshold", "http_req_duration:p95 < 500",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://staging:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.LoadUsers != 5 || cfg.LoadRequestsPerUser != 3 {
		t.Errorf("load sizing = %dx%d", cfg.LoadUsers, cfg.LoadRequestsPerUser)
	}
	if cfg.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	if len(cfg.Scenarios) != 1 || cfg.Scenarios[0] != "load" {
		t.Errorf("scenarios = %v", cfg.Scenarios)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("thresholds = %v", cfg.Thresholds)
	}
}

func TestLoadConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	content := []byte(`
base_url: http://fromfile:3000
load_users: 7
trading_orders: 9
headers:
  x-api-key: filekey
tracing:
  enabled: true
  protocol: http
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--users", "11"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://fromfile:3000" {
		t.Errorf("base url = %q, want file value", cfg.BaseURL)
	}
	// Explicit flag wins over the file.
	if cfg.LoadUsers != 11 {
		t.Errorf("users = %d, want flag value 11", cfg.LoadUsers)
	}
	if cfg.TradingOrders != 9 {
		t.Errorf("orders = %d, want file value 9", cfg.TradingOrders)
	}
	if cfg.Headers["X-Api-Key"] != "filekey" {
		t.Errorf("headers = %v, want canonical X-Api-Key", cfg.Headers)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Protocol != "http" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--config", "/nonexistent/bench.yaml"}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
