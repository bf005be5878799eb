package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/carbonlab/perfbench/internal/bench"
	"github.com/carbonlab/perfbench/internal/config"
	"github.com/carbonlab/perfbench/internal/dashboard"
	"github.com/carbonlab/perfbench/internal/history"
	"github.com/carbonlab/perfbench/internal/httpclient"
	"github.com/carbonlab/perfbench/internal/metrics"
	"github.com/carbonlab/perfbench/internal/output"
	"github.com/carbonlab/perfbench/internal/scenario"
	"github.com/carbonlab/perfbench/internal/threshold"
	"github.com/carbonlab/perfbench/internal/tracing"
)

const progressInterval = time.Second

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) logFailure(req bench.Request, o bench.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o.Err != "" {
		fmt.Fprintf(os.Stderr, "[perfbench] %s %s failed: %s\n", req.Method, req.Path, o.Err)
		return
	}
	fmt.Fprintf(os.Stderr, "[perfbench] %s %s failed: HTTP %d\n", req.Method, req.Path, o.StatusCode)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.ShowHistory > 0 {
		return showHistory(cfg)
	}

	var overrides *scenario.Overrides
	if cfg.ScenarioFile != "" {
		overrides, err = scenario.LoadOverrides(cfg.ScenarioFile)
		if err != nil {
			return err
		}
	}

	suite, err := buildScenarios(cfg, overrides)
	if err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
		Propagate:   cfg.Tracing.Propagate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = provider.Shutdown(shutdownCtx)
	}()

	collector := metrics.NewCollector()

	clientOpts := []httpclient.Option{
		httpclient.WithCollector(collector),
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, httpclient.WithHeaders(cfg.Headers))
	}
	if provider.Enabled() || provider.Propagate() {
		clientOpts = append(clientOpts, httpclient.WithTracer(provider.Tracer(), provider.Propagate()))
	}
	if cfg.LogErrors {
		logger := &stderrFailureLogger{}
		clientOpts = append(clientOpts, httpclient.WithFailureHook(logger.logFailure))
	}

	client, err := httpclient.New(cfg.BaseURL, cfg.Timeout, clientOpts...)
	if err != nil {
		return err
	}

	runner := &scenario.Runner{Requester: client}
	if cfg.Rate > 0 {
		runner.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	selected := cfg.SelectedScenarios()

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			BaseURL:   cfg.BaseURL,
			Scenarios: selected,
			Users:     cfg.LoadUsers,
			Rate:      float64(cfg.Rate),
			Timeout:   cfg.Timeout,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	}

	report := output.SuiteReport{
		RunID:     output.NewRunID(),
		StartedAt: time.Now().UTC(),
		BaseURL:   cfg.BaseURL,
	}

	evaluator := threshold.NewEvaluator(thresholds)
	thresholdsFailed := false

	for _, name := range selected {
		if ctx.Err() != nil {
			break
		}
		sc := suite[name]

		var progress *output.ProgressReporter
		if !cfg.JSONOutput && !cfg.Dashboard {
			progress = output.NewProgressReporter(collector, name, progressInterval, os.Stdout)
			progress.Start()
		}
		if dash != nil {
			dash.SetScenario(name)
		}

		collector.Start()
		scReport := runner.Run(ctx, sc)

		if progress != nil {
			progress.Stop()
		}

		report.Scenarios = append(report.Scenarios, scReport)
		for _, res := range evaluator.Evaluate(scReport.Stats) {
			report.Thresholds = append(report.Thresholds, fmt.Sprintf("[%s] %s", name, res.Message))
			if !res.Pass {
				thresholdsFailed = true
			}
		}

		if !cfg.JSONOutput && !cfg.Dashboard {
			output.PrintScenarioReport(os.Stdout, scReport)
		}
	}

	// Restore the terminal before printing the summary.
	if dash != nil {
		dash.Stop()
	}

	report.Advice = threshold.Advise(report.Scenarios)

	if cfg.JSONOutput {
		if err := output.WriteJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintSuiteSummary(os.Stdout, report)
	}

	if !cfg.NoExport {
		path, err := output.ExportJSON(cfg.ExportDir, report)
		if err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "\nDetailed results saved to: %s\n", path)
		}
	}

	if cfg.HistoryFile != "" {
		if err := saveHistory(cfg, report); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("benchmark interrupted")
	}
	if thresholdsFailed {
		return fmt.Errorf("one or more thresholds failed")
	}
	return nil
}

// saveHistory records the run and prints deltas against the previous one.
func saveHistory(cfg *config.Config, report output.SuiteReport) error {
	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer store.Close()

	previous, ok, err := store.Last()
	if err != nil {
		return err
	}
	if err := store.Save(report); err != nil {
		return err
	}
	if ok && !cfg.JSONOutput {
		output.PrintComparison(os.Stdout, report, previous)
	}
	return nil
}

func showHistory(cfg *config.Config) error {
	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.Recent(cfg.ShowHistory)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(os.Stdout, "No recorded runs.")
		return nil
	}

	for _, r := range reports {
		fmt.Fprintf(os.Stdout, "%s  %s  %s\n", r.RunID, r.StartedAt.Format(time.RFC3339), r.BaseURL)
		for _, sc := range r.Scenarios {
			line := fmt.Sprintf("  %-12s %d requests, %.2f rps, %.2f%% errors",
				sc.Name, sc.Stats.Total, sc.Stats.RequestsPerSec, sc.Stats.ErrorRatePercent)
			if sc.Stats.HasLatency {
				line += fmt.Sprintf(", p95 %.2fms", sc.Stats.P95LatencyMs)
			}
			fmt.Fprintln(os.Stdout, line)
		}
	}
	return nil
}
