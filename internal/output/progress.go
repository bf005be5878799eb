package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/carbonlab/perfbench/internal/metrics"
)

// ProgressReporter displays real-time progress updates on one line.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	label     string
}

// NewProgressReporter creates a progress reporter that updates at the
// given interval. label names the scenario being driven.
func NewProgressReporter(collector *metrics.Collector, label string, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		label:     label,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and clears the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprint(p.writer, "\r\033[K")
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			snap := p.collector.Snapshot()
			line := fmt.Sprintf("\r[%s] Requests: %d | Successes: %d | Failures: %d | RPS: %.1f",
				p.label, snap.Total, snap.Successes, snap.Failures, snap.RequestsPerSec)
			if snap.P90Latency > 0 {
				line += fmt.Sprintf(" | P90: %.1fms", float64(snap.P90Latency)/float64(time.Millisecond))
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
