package config

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "perfbench",
		Short:         "Performance benchmark suite for the carbon marketplace API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("base-url", "http://localhost:3000", "Base URL of the service under test")
	flags.StringToString("header", nil, "Additional request header in key=value form")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout for sequential scenarios")
	flags.Duration("load-timeout", 15*time.Second, "Per-request timeout for the concurrent load scenario")
	flags.IntP("rate", "r", 0, "Requests per second pacing across all lanes (0 means unpaced)")

	// Scenario selection and sizing
	flags.StringSlice("scenario", nil, "Scenario subset to run (endpoints, prediction, trading, load); repeatable")
	flags.Int("predictions", 100, "Number of sequential prediction requests")
	flags.Int("orders", 50, "Number of sequential trading orders")
	flags.IntP("users", "u", 20, "Concurrent virtual users for the load scenario")
	flags.IntP("requests-per-user", "n", 10, "Requests each virtual user issues during the load scenario")
	flags.String("scenario-file", "", "Path to YAML file overriding scenario payloads and counts")

	// Assertions
	flags.StringSlice("threshold", nil, "Performance assertion, e.g. 'http_req_duration:p95 < 500'; repeatable")

	// Output
	flags.Bool("json", false, "Emit the suite report as JSON on stdout")
	flags.Bool("dashboard", false, "Show live terminal dashboard while scenarios run")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("export-dir", ".", "Directory for the timestamped JSON report file")
	flags.Bool("no-export", false, "Skip writing the JSON report file")

	// History
	flags.String("history-file", "", "Path to the bbolt run-history database (empty disables history)")
	flags.Int("show-history", 0, "List the last N recorded runs and exit")

	// Tracing
	flags.Bool("trace", false, "Enable OpenTelemetry trace export")
	flags.String("trace-endpoint", "", "OTLP endpoint (defaults to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP transport: grpc or http")
	flags.String("trace-service-name", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0 and 1")
	flags.Bool("trace-insecure", false, "Use a plaintext OTLP connection")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers toward the target")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}
