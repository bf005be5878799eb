package bench

import (
	"math"
	"sort"
	"time"
)

// Stats summarizes one batch. Latency fields are computed only over
// successful outcomes; HasLatency is false when there were none, in
// which case the millisecond fields stay zero and are omitted from JSON.
type Stats struct {
	Total     int `json:"total_requests"`
	Successes int `json:"successful_requests"`
	Failures  int `json:"failed_requests"`

	HasLatency    bool          `json:"-"`
	AvgLatency    time.Duration `json:"-"`
	MedianLatency time.Duration `json:"-"`
	P95Latency    time.Duration `json:"-"`
	MinLatency    time.Duration `json:"-"`
	MaxLatency    time.Duration `json:"-"`
	Duration      time.Duration `json:"-"`

	AvgLatencyMs    float64 `json:"average_response_time_ms,omitempty"`
	MedianLatencyMs float64 `json:"median_response_time_ms,omitempty"`
	P95LatencyMs    float64 `json:"p95_response_time_ms,omitempty"`
	MinLatencyMs    float64 `json:"min_response_time_ms,omitempty"`
	MaxLatencyMs    float64 `json:"max_response_time_ms,omitempty"`

	DurationSeconds  float64 `json:"total_duration_seconds"`
	RequestsPerSec   float64 `json:"requests_per_second"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
}

// Aggregate reduces a batch's outcomes into summary statistics. It is a
// pure function: no I/O, and safe on an empty or all-failed input (zero
// values instead of NaN or panics).
//
// The p95 is the order statistic at index floor(0.95*n), clamped to n-1.
// This is deliberate: the reported number is an element of the sample,
// never an interpolation between two.
func Aggregate(outcomes []Outcome, batchDuration time.Duration) Stats {
	st := Stats{
		Total:           len(outcomes),
		Duration:        batchDuration,
		DurationSeconds: batchDuration.Seconds(),
	}

	latencies := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			st.Successes++
			if o.HasLatency {
				latencies = append(latencies, o.Latency)
			}
		} else {
			st.Failures++
		}
	}

	if n := len(latencies); n > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}

		idx := int(math.Floor(0.95 * float64(n)))
		if idx > n-1 {
			idx = n - 1
		}

		st.HasLatency = true
		st.AvgLatency = sum / time.Duration(n)
		st.MedianLatency = medianOf(latencies)
		st.P95Latency = latencies[idx]
		st.MinLatency = latencies[0]
		st.MaxLatency = latencies[n-1]

		st.AvgLatencyMs = toMillis(st.AvgLatency)
		st.MedianLatencyMs = toMillis(st.MedianLatency)
		st.P95LatencyMs = toMillis(st.P95Latency)
		st.MinLatencyMs = toMillis(st.MinLatency)
		st.MaxLatencyMs = toMillis(st.MaxLatency)
	}

	if batchDuration > 0 && st.Total > 0 {
		st.RequestsPerSec = float64(st.Total) / batchDuration.Seconds()
	}
	if st.Total > 0 {
		st.ErrorRatePercent = float64(st.Failures) / float64(st.Total) * 100
	}

	return st
}

// medianOf expects sorted input. Even counts average the two middle
// elements, matching the conventional median.
func medianOf(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
