// Package scenario describes benchmark scenarios and turns each into a
// self-contained report. Every scenario run returns an explicit Report
// value; composing them into a suite is the caller's job.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/carbonlab/perfbench/internal/bench"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// EndpointProbe is a single health-check call with its own expectation.
type EndpointProbe struct {
	Name         string
	Method       string
	Path         string
	ExpectStatus int
	Timeout      time.Duration
	ValidateBody func(body []byte) error
}

// EndpointResult mirrors one probe's outcome in report-friendly form.
type EndpointResult struct {
	Endpoint   string  `json:"endpoint"`
	Method     string  `json:"method"`
	StatusCode int     `json:"status_code,omitempty"`
	LatencyMs  float64 `json:"response_time_ms,omitempty"`
	Success    bool    `json:"success"`
	Err        string  `json:"error,omitempty"`
}

// Scenario is one benchmark phase. Either Probes is set (health check),
// or Factory together with the sizing fields for its mode.
type Scenario struct {
	Name     string
	Mode     Mode
	Requests int // sequential request count
	Users    int // concurrent lanes
	PerUser  int // requests per lane
	Factory  bench.Factory
	Probes   []EndpointProbe
}

// TotalRequests returns how many requests the scenario will dispatch.
func (s Scenario) TotalRequests() int {
	switch {
	case len(s.Probes) > 0:
		return len(s.Probes)
	case s.Mode == ModeConcurrent:
		return s.Users * s.PerUser
	default:
		return s.Requests
	}
}

// Report is the outcome of one scenario run.
type Report struct {
	Name      string           `json:"name"`
	Mode      Mode             `json:"mode"`
	Users     int              `json:"concurrent_users,omitempty"`
	Stats     bench.Stats      `json:"stats"`
	Endpoints []EndpointResult `json:"endpoints,omitempty"`
}

// Runner executes scenarios against a single requester.
type Runner struct {
	Requester bench.Requester
	Limiter   *rate.Limiter // optional pacing for concurrent scenarios
}

// Run executes one scenario to completion and aggregates its outcomes.
func (r *Runner) Run(ctx context.Context, sc Scenario) Report {
	report := Report{Name: sc.Name, Mode: sc.Mode}

	var batch bench.Batch
	switch {
	case len(sc.Probes) > 0:
		batch = r.runProbes(ctx, sc, &report)
	case sc.Mode == ModeConcurrent:
		report.Users = sc.Users
		batch = bench.RunBatch(ctx, bench.Options{
			Concurrency:     sc.Users,
			RequestsPerUser: sc.PerUser,
			Factory:         sc.Factory,
			Requester:       r.Requester,
			Limiter:         r.Limiter,
		})
	default:
		batch = bench.RunSequential(ctx, sc.Requests, sc.Factory, r.Requester)
	}

	report.Stats = bench.Aggregate(batch.Outcomes, batch.Duration)
	return report
}

func (r *Runner) runProbes(ctx context.Context, sc Scenario, report *Report) bench.Batch {
	probes := sc.Probes
	factory := func(_, seq int) bench.Request {
		p := probes[seq]
		return bench.Request{
			Method:       p.Method,
			Path:         p.Path,
			AcceptStatus: p.ExpectStatus,
			Timeout:      p.Timeout,
			ValidateBody: p.ValidateBody,
		}
	}
	batch := bench.RunSequential(ctx, len(probes), factory, r.Requester)

	report.Endpoints = make([]EndpointResult, 0, len(probes))
	for i, o := range batch.Outcomes {
		res := EndpointResult{
			Endpoint:   probes[i].Path,
			Method:     probes[i].Method,
			StatusCode: o.StatusCode,
			Success:    o.Success,
			Err:        o.Err,
		}
		if probes[i].Name != "" {
			res.Endpoint = probes[i].Name
		}
		if o.HasLatency {
			res.LatencyMs = float64(o.Latency) / float64(time.Millisecond)
		}
		report.Endpoints = append(report.Endpoints, res)
	}
	return batch
}

// HealthyEndpoints counts probe results that met their expectation.
func (r Report) HealthyEndpoints() (healthy, total int) {
	for _, ep := range r.Endpoints {
		if ep.Success {
			healthy++
		}
	}
	return healthy, len(r.Endpoints)
}

// JSONFieldPresent builds a body validator requiring the given gjson
// path to exist in the response.
func JSONFieldPresent(path string) func([]byte) error {
	return func(body []byte) error {
		if !gjson.GetBytes(body, path).Exists() {
			return fmt.Errorf("missing field %q", path)
		}
		return nil
	}
}

// JSONFieldEquals builds a body validator requiring path to equal want.
func JSONFieldEquals(path, want string) func([]byte) error {
	return func(body []byte) error {
		got := gjson.GetBytes(body, path)
		if !got.Exists() {
			return fmt.Errorf("missing field %q", path)
		}
		if got.String() != want {
			return fmt.Errorf("field %q = %q, want %q", path, got.String(), want)
		}
		return nil
	}
}
