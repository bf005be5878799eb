package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/carbonlab/perfbench/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		BaseURL:             "http://localhost:3000",
		Timeout:             10 * time.Second,
		LoadTimeout:         15 * time.Second,
		PredictionRequests:  100,
		TradingOrders:       50,
		LoadUsers:           20,
		LoadRequestsPerUser: 10,
		Tracing:             config.TracingConfig{SampleRate: 1},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	cfg := validConfig()
	cfg.BaseURL = ""
	cfg.LoadUsers = 0
	cfg.Rate = -1
	cfg.Scenarios = []string{"warehouse"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr config.ValidationError
	ok := false
	if v, isV := err.(config.ValidationError); isV {
		verr, ok = v, true
	}
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	issues := strings.Join(verr.Issues(), "\n")
	for _, want := range []string{"base-url is required", "users must be >= 1", "rate must be >= 0", `unknown scenario "warehouse"`} {
		if !strings.Contains(issues, want) {
			t.Errorf("issues missing %q:\n%s", want, issues)
		}
	}
}

func TestValidateRejectsDashboardWithJSON(t *testing.T) {
	cfg := validConfig()
	cfg.Dashboard = true
	cfg.JSONOutput = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected dashboard/json conflict")
	}
}

func TestValidateTracingBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Protocol = "udp"
	cfg.Tracing.SampleRate = 2
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected tracing validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "tracing protocol") || !strings.Contains(msg, "sample-rate") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestSelectedScenariosOrderAndSubset(t *testing.T) {
	cfg := validConfig()
	if got := cfg.SelectedScenarios(); len(got) != 4 {
		t.Fatalf("all scenarios expected, got %v", got)
	}

	cfg.Scenarios = []string{"LOAD", " trading "}
	got := cfg.SelectedScenarios()
	if len(got) != 2 || got[0] != config.ScenarioTrading || got[1] != config.ScenarioLoad {
		t.Fatalf("expected suite-order subset [trading load], got %v", got)
	}
}
