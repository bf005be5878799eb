// Package config provides configuration loading and validation for perfbench.
package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Scenario names accepted by --scenario and the scenarios config key.
const (
	ScenarioEndpoints  = "endpoints"
	ScenarioPrediction = "prediction"
	ScenarioTrading    = "trading"
	ScenarioLoad       = "load"
)

// KnownScenarios lists every scenario name in suite order.
func KnownScenarios() []string {
	return []string{ScenarioEndpoints, ScenarioPrediction, ScenarioTrading, ScenarioLoad}
}

type Config struct {
	BaseURL string            `mapstructure:"base_url"`
	Headers map[string]string `mapstructure:"-"` // merged manually so keys stay canonical

	Timeout     time.Duration `mapstructure:"timeout"`      // per-call timeout, sequential scenarios
	LoadTimeout time.Duration `mapstructure:"load_timeout"` // per-call timeout, concurrent load scenario
	Rate        int           `mapstructure:"rate"`         // requests/sec pacing (0 = unpaced)

	Scenarios []string `mapstructure:"scenarios"` // subset to run; empty means all

	PredictionRequests  int `mapstructure:"prediction_requests"`
	TradingOrders       int `mapstructure:"trading_orders"`
	LoadUsers           int `mapstructure:"load_users"`
	LoadRequestsPerUser int `mapstructure:"load_requests_per_user"`

	ScenarioFile string   `mapstructure:"scenario_file"` // YAML payload/count overrides
	Thresholds   []string `mapstructure:"thresholds"`

	JSONOutput bool   `mapstructure:"json_output"`
	Dashboard  bool   `mapstructure:"dashboard"`
	LogErrors  bool   `mapstructure:"log_errors"`
	ExportDir  string `mapstructure:"export_dir"`
	NoExport   bool   `mapstructure:"no_export"`

	HistoryFile string `mapstructure:"history_file"`
	ShowHistory int    `mapstructure:"-"` // flag only: list last N runs and exit

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// ValidationError aggregates every problem found in a Config.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		issues = append(issues, "base-url is required (use --help for usage information)")
	} else if u, err := url.Parse(base); err != nil {
		issues = append(issues, fmt.Sprintf("base-url is not a valid URL: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("base-url must use http or https, got %q", u.Scheme))
	}

	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.LoadTimeout <= 0 {
		issues = append(issues, "load-timeout must be > 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.PredictionRequests < 1 {
		issues = append(issues, "predictions must be >= 1")
	}
	if c.TradingOrders < 1 {
		issues = append(issues, "orders must be >= 1")
	}
	if c.LoadUsers < 1 {
		issues = append(issues, "users must be >= 1")
	}
	if c.LoadRequestsPerUser < 1 {
		issues = append(issues, "requests-per-user must be >= 1")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json are mutually exclusive")
	}
	if c.ShowHistory > 0 && strings.TrimSpace(c.HistoryFile) == "" {
		issues = append(issues, "show-history requires history-file")
	}

	known := KnownScenarios()
	for _, name := range c.Scenarios {
		if !containsString(known, strings.ToLower(strings.TrimSpace(name))) {
			issues = append(issues, fmt.Sprintf("unknown scenario %q (known: %s)", name, strings.Join(known, ", ")))
		}
	}

	if proto := strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)); proto != "" && proto != "grpc" && proto != "http" {
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", c.Tracing.Protocol))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample-rate must be between 0 and 1, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		sort.Strings(issues)
		return ValidationError{issues: issues}
	}
	return nil
}

// SelectedScenarios returns the scenarios to run, normalized and in
// suite order.
func (c Config) SelectedScenarios() []string {
	if len(c.Scenarios) == 0 {
		return KnownScenarios()
	}
	want := make(map[string]bool, len(c.Scenarios))
	for _, name := range c.Scenarios {
		want[strings.ToLower(strings.TrimSpace(name))] = true
	}
	selected := make([]string, 0, len(want))
	for _, name := range KnownScenarios() {
		if want[name] {
			selected = append(selected, name)
		}
	}
	return selected
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
