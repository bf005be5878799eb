package threshold_test

import (
	"strings"
	"testing"
	"time"

	"github.com/carbonlab/perfbench/internal/bench"
	"github.com/carbonlab/perfbench/internal/scenario"
	"github.com/carbonlab/perfbench/internal/threshold"
)

func sampleStats() bench.Stats {
	outcomes := []bench.Outcome{
		{Latency: 100 * time.Millisecond, HasLatency: true, StatusCode: 200, Success: true},
		{Latency: 200 * time.Millisecond, HasLatency: true, StatusCode: 200, Success: true},
		{Latency: 300 * time.Millisecond, HasLatency: true, StatusCode: 200, Success: true},
		{StatusCode: 500, HasLatency: true, Latency: 50 * time.Millisecond},
	}
	return bench.Aggregate(outcomes, 2*time.Second)
}

func TestParseValidThresholds(t *testing.T) {
	cases := []struct {
		input     string
		metric    string
		aggregate string
		operator  string
		value     float64
	}{
		{"http_req_duration:p95 < 500", "http_req_duration", "p95", "<", 500},
		{"http_req_duration:avg<=200", "http_req_duration", "avg", "<=", 200},
		{"http_req_failed:rate < 0.05", "http_req_failed", "rate", "<", 0.05},
		{"http_requests:rate > 100", "http_requests", "rate", ">", 100},
		{"http_req_duration:median == 30", "http_req_duration", "median", "==", 30},
	}
	for _, tc := range cases {
		th, err := threshold.Parse(tc.input)
		if err != nil {
			t.Errorf("%q: %v", tc.input, err)
			continue
		}
		if th.Metric != tc.metric || th.Aggregate != tc.aggregate || th.Operator != tc.operator || th.Value != tc.value {
			t.Errorf("%q parsed as %+v", tc.input, th)
		}
	}
}

func TestParseInvalidThresholds(t *testing.T) {
	for _, input := range []string{
		"",
		"nonsense",
		"disk_io:p95 < 10",
		"http_req_duration:p42 < 10",
		"http_req_duration:p95 ~ 10",
	} {
		if _, err := threshold.Parse(input); err == nil {
			t.Errorf("%q: expected parse error", input)
		}
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	_, err := threshold.ParseMultiple([]string{"http_req_duration:p95 < 500", "bogus"})
	if err == nil || !strings.Contains(err.Error(), "threshold[1]") {
		t.Fatalf("expected indexed error, got %v", err)
	}
}

func TestEvaluateAgainstStats(t *testing.T) {
	ths, err := threshold.ParseMultiple([]string{
		"http_req_duration:avg < 500",   // avg 200ms -> pass
		"http_req_duration:p95 < 250",   // p95 300ms -> fail
		"http_req_failed:rate < 0.5",    // 0.25 -> pass
		"http_req_failed:count == 1",    // pass
		"http_requests:rate > 1",        // 2 rps -> pass
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	results := threshold.NewEvaluator(ths).Evaluate(sampleStats())
	if len(results) != 5 {
		t.Fatalf("results = %d", len(results))
	}
	wantPass := []bool{true, false, true, true, true}
	for i, r := range results {
		if r.Pass != wantPass[i] {
			t.Errorf("threshold %q: pass = %v, want %v (actual %.2f)", r.Threshold.Raw, r.Pass, wantPass[i], r.Actual)
		}
	}
	if !strings.HasPrefix(results[1].Message, "✗") {
		t.Errorf("failed result message = %q", results[1].Message)
	}
}

func TestEvaluateEmptyStatsIsZeroSafe(t *testing.T) {
	ths, _ := threshold.ParseMultiple([]string{"http_req_failed:rate < 0.05"})
	results := threshold.NewEvaluator(ths).Evaluate(bench.Stats{})
	if len(results) != 1 || !results[0].Pass {
		t.Fatalf("zero-traffic failure rate should pass: %+v", results)
	}
}

func TestAdviseFlagsProblems(t *testing.T) {
	slow := bench.Stats{HasLatency: true, AvgLatencyMs: 900, Total: 10, RequestsPerSec: 3}
	loaded := bench.Stats{HasLatency: true, P95LatencyMs: 4000, ErrorRatePercent: 12, Total: 200}

	reports := []scenario.Report{
		{Name: "prediction", Stats: slow},
		{Name: "trading", Stats: slow},
		{Name: "load", Stats: loaded},
		{Name: "endpoints", Endpoints: []scenario.EndpointResult{
			{Endpoint: "/health", Success: true},
			{Endpoint: "/api/market-data", Success: false},
		}},
	}

	advice := threshold.Advise(reports)
	joined := strings.Join(advice, "\n")
	for _, want := range []string{
		"Prediction API is slow",
		"Trading throughput is low",
		"High error rate under load",
		"High 95th percentile",
		"1 API endpoint(s) failing",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("advice missing %q:\n%s", want, joined)
		}
	}
}

func TestAdviseAllClear(t *testing.T) {
	healthy := bench.Stats{HasLatency: true, AvgLatencyMs: 50, P95LatencyMs: 120, RequestsPerSec: 80, Total: 100}
	advice := threshold.Advise([]scenario.Report{
		{Name: "prediction", Stats: healthy},
		{Name: "trading", Stats: healthy},
		{Name: "load", Stats: healthy},
	})
	if len(advice) != 1 || !strings.Contains(advice[0], "look good") {
		t.Fatalf("expected single all-clear note, got %v", advice)
	}
}
