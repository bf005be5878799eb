package threshold

import (
	"fmt"

	"github.com/carbonlab/perfbench/internal/config"
	"github.com/carbonlab/perfbench/internal/scenario"
)

// Built-in advisory limits. These mirror the remediation hints the
// benchmark has always printed and are independent of user thresholds.
const (
	slowPredictionAvgMs = 500.0
	minOrdersPerSec     = 10.0
	maxLoadErrorRatePct = 5.0
	maxLoadP95Ms        = 2000.0
)

// Advise inspects a finished suite and returns remediation hints for
// anything outside the advisory limits. An all-clear yields a single
// positive note so the report section is never empty.
func Advise(reports []scenario.Report) []string {
	var advice []string

	for _, r := range reports {
		switch r.Name {
		case config.ScenarioPrediction:
			if r.Stats.HasLatency && r.Stats.AvgLatencyMs > slowPredictionAvgMs {
				advice = append(advice, fmt.Sprintf(
					"Prediction API is slow (%.0fms avg > %.0fms) - consider caching or optimization",
					r.Stats.AvgLatencyMs, slowPredictionAvgMs))
			}
		case config.ScenarioTrading:
			if r.Stats.Total > 0 && r.Stats.RequestsPerSec < minOrdersPerSec {
				advice = append(advice, fmt.Sprintf(
					"Trading throughput is low (%.2f orders/sec < %.0f) - optimize order processing",
					r.Stats.RequestsPerSec, minOrdersPerSec))
			}
		case config.ScenarioLoad:
			if r.Stats.ErrorRatePercent > maxLoadErrorRatePct {
				advice = append(advice, fmt.Sprintf(
					"High error rate under load (%.2f%% > %.0f%%) - improve error handling",
					r.Stats.ErrorRatePercent, maxLoadErrorRatePct))
			}
			if r.Stats.HasLatency && r.Stats.P95LatencyMs > maxLoadP95Ms {
				advice = append(advice, fmt.Sprintf(
					"High 95th percentile response time under load (%.0fms > %.0fms) - optimize slow queries",
					r.Stats.P95LatencyMs, maxLoadP95Ms))
			}
		case config.ScenarioEndpoints:
			healthy, total := r.HealthyEndpoints()
			if failed := total - healthy; failed > 0 {
				advice = append(advice, fmt.Sprintf(
					"%d API endpoint(s) failing - check service health", failed))
			}
		}
	}

	if len(advice) == 0 {
		advice = append(advice, "All performance metrics look good!")
	}
	return advice
}
