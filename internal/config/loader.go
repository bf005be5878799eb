package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line
// arguments. Precedence: explicit flag > config file > flag default.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help.
var ErrHelpRequested = errors.New("help requested")

func NewLoader() *Loader {
	return &Loader{}
}

// viperKeyToFlag maps viper config keys to their flag names.
var viperKeyToFlag = map[string]string{
	"base_url":               "base-url",
	"timeout":                "timeout",
	"load_timeout":           "load-timeout",
	"rate":                   "rate",
	"scenarios":              "scenario",
	"prediction_requests":    "predictions",
	"trading_orders":         "orders",
	"load_users":             "users",
	"load_requests_per_user": "requests-per-user",
	"scenario_file":          "scenario-file",
	"thresholds":             "threshold",
	"json_output":            "json",
	"dashboard":              "dashboard",
	"log_errors":             "log-errors",
	"export_dir":             "export-dir",
	"no_export":              "no-export",
	"history_file":           "history-file",
	"tracing.enabled":        "trace",
	"tracing.endpoint":       "trace-endpoint",
	"tracing.protocol":       "trace-protocol",
	"tracing.service_name":   "trace-service-name",
	"tracing.sample_rate":    "trace-sample-rate",
	"tracing.insecure":       "trace-insecure",
	"tracing.propagate":      "trace-propagate",
}

// Load parses command-line arguments and an optional config file into a
// Config. It does not validate; callers run Config.Validate separately.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			_ = cmd.Help()
			return nil, ErrHelpRequested
		}
		return nil, err
	}
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	configPath = strings.TrimSpace(configPath)

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, flagName := range viperKeyToFlag {
		flag := flags.Lookup(flagName)
		if flag == nil {
			return nil, fmt.Errorf("internal: flag %q not registered", flagName)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", flagName, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = configPath
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)

	// pflag's stringToString value does not round-trip through viper;
	// merge header flags over any file-provided headers directly.
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if fileHeaders := v.GetStringMapString("headers"); len(fileHeaders) > 0 {
		for k, val := range fileHeaders {
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = val
		}
	}
	if flagHeaders, err := flags.GetStringToString("header"); err == nil {
		for k, val := range flagHeaders {
			key := http.CanonicalHeaderKey(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			cfg.Headers[key] = val
		}
	}

	if n, err := flags.GetInt("show-history"); err == nil {
		cfg.ShowHistory = n
	}

	return cfg, nil
}
