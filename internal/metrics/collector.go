package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/carbonlab/perfbench/internal/bench"
)

// Collector records per-request observations in a thread-safe manner.
// It backs the live progress line and dashboard while a scenario runs;
// the authoritative end-of-scenario numbers come from bench.Aggregate.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByKind map[string]int64
	start        time.Time
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	Total          int64
	Successes      int64
	Failures       int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	MeanLatency    time.Duration
	P50Latency     time.Duration
	P90Latency     time.Duration
	P99Latency     time.Duration
	Elapsed        time.Duration
	RequestsPerSec float64
	Errors         map[string]int
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		errorsByKind: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start resets the collector to an empty state with the clock at now.
// Call it immediately before a scenario's first request so live rates
// reflect that scenario alone.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hist.Reset()
	c.successes = 0
	c.failures = 0
	c.minLatency = 0
	c.maxLatency = 0
	c.sumLatency = 0
	c.errorsByKind = make(map[string]int64)
	c.start = time.Now()
}

// Record folds one outcome into the running totals.
func (c *Collector) Record(o bench.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.HasLatency {
		us := o.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)

		c.sumLatency += o.Latency
		if c.minLatency == 0 || o.Latency < c.minLatency {
			c.minLatency = o.Latency
		}
		if o.Latency > c.maxLatency {
			c.maxLatency = o.Latency
		}
	}

	if o.Success {
		c.successes++
		return
	}
	c.failures++
	c.errorsByKind[failureLabel(o)]++
}

// Snapshot computes the current aggregated view.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	snap := Snapshot{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Elapsed:    time.Since(c.start),
	}

	if count := c.hist.TotalCount(); count > 0 {
		snap.MeanLatency = time.Duration(int64(c.sumLatency) / count)
		snap.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		snap.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	if snap.Elapsed > 0 && total > 0 {
		snap.RequestsPerSec = float64(total) / snap.Elapsed.Seconds()
	}

	if len(c.errorsByKind) > 0 {
		snap.Errors = make(map[string]int, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			snap.Errors[k] = int(v)
		}
	}

	return snap
}

// ErrorBreakdown returns failure counts grouped by friendly label.
func (c *Collector) ErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		result[k] = int(v)
	}
	return result
}
