// Package output renders and persists benchmark suite reports.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/carbonlab/perfbench/internal/scenario"
)

// SuiteReport is the complete result of one benchmark invocation.
type SuiteReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	BaseURL    string            `json:"base_url"`
	Scenarios  []scenario.Report `json:"scenarios"`
	Thresholds []string          `json:"threshold_results,omitempty"`
	Advice     []string          `json:"recommendations,omitempty"`
}

// NewRunID returns a fresh, time-sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// Scenario looks up a scenario report by name.
func (s SuiteReport) Scenario(name string) (scenario.Report, bool) {
	for _, r := range s.Scenarios {
		if r.Name == name {
			return r, true
		}
	}
	return scenario.Report{}, false
}

// PrintScenarioReport outputs a human-readable summary for one scenario.
func PrintScenarioReport(w io.Writer, r scenario.Report) {
	fmt.Fprintf(w, "\n--- %s ---\n", strings.ToUpper(r.Name))
	if r.Users > 0 {
		fmt.Fprintf(w, "Concurrent Users:  %d\n", r.Users)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", r.Stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", r.Stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", r.Stats.Failures)
	fmt.Fprintf(w, "Duration:          %.2fs\n", r.Stats.DurationSeconds)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", r.Stats.RequestsPerSec)
	fmt.Fprintf(w, "Error Rate:        %.2f%%\n", r.Stats.ErrorRatePercent)

	if r.Stats.HasLatency {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %.2fms\n", r.Stats.MinLatencyMs)
		fmt.Fprintf(w, "  Average:         %.2fms\n", r.Stats.AvgLatencyMs)
		fmt.Fprintf(w, "  Median:          %.2fms\n", r.Stats.MedianLatencyMs)
		fmt.Fprintf(w, "  P95:             %.2fms\n", r.Stats.P95LatencyMs)
		fmt.Fprintf(w, "  Max:             %.2fms\n", r.Stats.MaxLatencyMs)
	}

	if len(r.Endpoints) > 0 {
		fmt.Fprintln(w, "\nEndpoints:")
		for _, ep := range r.Endpoints {
			mark := "✓"
			detail := fmt.Sprintf("%d", ep.StatusCode)
			if !ep.Success {
				mark = "✗"
				if ep.StatusCode == 0 {
					detail = "ERROR"
				}
			}
			fmt.Fprintf(w, "  %s %s %s: %s", mark, ep.Method, ep.Endpoint, detail)
			if ep.Success {
				fmt.Fprintf(w, " (%.2fms)", ep.LatencyMs)
			} else if ep.Err != "" {
				fmt.Fprintf(w, " (%s)", ep.Err)
			}
			fmt.Fprintln(w)
		}
	}
}

// PrintSuiteSummary outputs the closing summary block for a suite.
func PrintSuiteSummary(w io.Writer, report SuiteReport) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "PERFORMANCE TEST SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Run:        %s\n", report.RunID)
	fmt.Fprintf(w, "Target:     %s\n", report.BaseURL)
	fmt.Fprintf(w, "Started At: %s\n", report.StartedAt.Format(time.RFC3339))

	if ep, ok := report.Scenario("endpoints"); ok {
		healthy, total := ep.HealthyEndpoints()
		fmt.Fprintf(w, "API Health: %d/%d endpoints healthy\n", healthy, total)
	}
	if pred, ok := report.Scenario("prediction"); ok && pred.Stats.HasLatency {
		fmt.Fprintf(w, "Prediction API: %.2fms avg response, %.1f%% success\n",
			pred.Stats.AvgLatencyMs, 100-pred.Stats.ErrorRatePercent)
	}
	if trade, ok := report.Scenario("trading"); ok {
		fmt.Fprintf(w, "Trading API: %.2f orders/sec", trade.Stats.RequestsPerSec)
		if trade.Stats.HasLatency {
			fmt.Fprintf(w, ", %.2fms avg response", trade.Stats.AvgLatencyMs)
		}
		fmt.Fprintln(w)
	}
	if load, ok := report.Scenario("load"); ok {
		fmt.Fprintf(w, "Load Test: %.2f req/sec, %.2f%% errors", load.Stats.RequestsPerSec, load.Stats.ErrorRatePercent)
		if load.Stats.HasLatency {
			fmt.Fprintf(w, ", p95 %.2fms", load.Stats.P95LatencyMs)
		}
		fmt.Fprintln(w)
	}

	if len(report.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, msg := range report.Thresholds {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}

	if len(report.Advice) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, line := range report.Advice {
			fmt.Fprintf(w, "  • %s\n", line)
		}
	}
}

// PrintComparison shows per-scenario deltas against a previous run.
func PrintComparison(w io.Writer, current, previous SuiteReport) {
	fmt.Fprintf(w, "\nCompared to run %s (%s):\n", previous.RunID, previous.StartedAt.Format(time.RFC3339))
	for _, cur := range current.Scenarios {
		prev, ok := previous.Scenario(cur.Name)
		if !ok || cur.Stats.Total == 0 || prev.Stats.Total == 0 {
			continue
		}
		line := fmt.Sprintf("  %-12s rps %+.2f", cur.Name, cur.Stats.RequestsPerSec-prev.Stats.RequestsPerSec)
		if cur.Stats.HasLatency && prev.Stats.HasLatency {
			line += fmt.Sprintf(", p95 %+.2fms, avg %+.2fms",
				cur.Stats.P95LatencyMs-prev.Stats.P95LatencyMs,
				cur.Stats.AvgLatencyMs-prev.Stats.AvgLatencyMs)
		}
		fmt.Fprintln(w, line)
	}
}
