package bench

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Request describes one call against the target service.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header

	// AcceptStatus is the response status that counts as success.
	// Zero means http.StatusOK.
	AcceptStatus int

	// Timeout overrides the requester's default per-call timeout when > 0.
	Timeout time.Duration

	// ValidateBody, when set, is applied to the body of an accepted
	// response; a non-nil error downgrades the outcome to a failure.
	ValidateBody func(body []byte) error
}

// ExpectedStatus returns the status code that counts as success.
func (r Request) ExpectedStatus() int {
	if r.AcceptStatus == 0 {
		return http.StatusOK
	}
	return r.AcceptStatus
}

// Outcome records the result of one dispatched request. A transport
// failure (timeout, connection refused) leaves StatusCode zero and
// HasLatency false; an HTTP-level failure carries the received status.
type Outcome struct {
	Latency    time.Duration
	HasLatency bool
	StatusCode int
	Success    bool
	Err        string
}

// TransportFailure reports whether the request failed before any
// response was received.
func (o Outcome) TransportFailure() bool {
	return !o.Success && o.StatusCode == 0
}

// StatusFailure reports whether a response arrived with an unexpected
// status code.
func (o Outcome) StatusFailure() bool {
	return !o.Success && o.StatusCode != 0
}

// Factory produces the request for a given (lane, seq) slot. It must be
// pure: lane is the simulated user index in [0, Concurrency), seq the
// request index within that lane in [0, RequestsPerUser).
type Factory func(lane, seq int) Request

// Requester executes a single request. Implementations never return an
// error; every failure mode is captured inside the Outcome so one bad
// call cannot abort a batch.
type Requester interface {
	Do(ctx context.Context, req Request) Outcome
}

// Options configure RunBatch.
type Options struct {
	Concurrency     int           // number of lanes, one worker each
	RequestsPerUser int           // requests per lane, executed in order
	Factory         Factory       // request producer (required)
	Requester       Requester
	Limiter         *rate.Limiter // optional pacing shared across lanes
}

func (o *Options) normalize() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.RequestsPerUser < 1 {
		o.RequestsPerUser = 1
	}
}

// Batch holds the raw outcomes of one RunBatch invocation together with
// its wall-clock duration.
type Batch struct {
	Outcomes []Outcome
	Duration time.Duration
}

// RunBatch dispatches Concurrency lanes concurrently, each executing its
// RequestsPerUser calls strictly in index order. Lanes never block on one
// another; each lane's only suspension point is its own in-flight call.
// The returned batch contains exactly Concurrency*RequestsPerUser
// outcomes, grouped by lane but with no cross-lane ordering guarantee.
func RunBatch(ctx context.Context, opt Options) Batch {
	opt.normalize()
	start := time.Now()

	// One result slice per lane; merged only after every lane is done,
	// so no slot is written from two goroutines.
	lanes := make([][]Outcome, opt.Concurrency)

	var wg sync.WaitGroup
	wg.Add(opt.Concurrency)
	for i := 0; i < opt.Concurrency; i++ {
		go func(lane int) {
			defer wg.Done()
			lanes[lane] = runLane(ctx, lane, opt)
		}(i)
	}
	wg.Wait()

	outcomes := make([]Outcome, 0, opt.Concurrency*opt.RequestsPerUser)
	for _, lane := range lanes {
		outcomes = append(outcomes, lane...)
	}
	return Batch{Outcomes: outcomes, Duration: time.Since(start)}
}

func runLane(ctx context.Context, lane int, opt Options) []Outcome {
	outcomes := make([]Outcome, 0, opt.RequestsPerUser)
	for seq := 0; seq < opt.RequestsPerUser; seq++ {
		if opt.Limiter != nil {
			if err := opt.Limiter.Wait(ctx); err != nil {
				outcomes = append(outcomes, Outcome{Err: err.Error()})
				continue
			}
		}
		outcomes = append(outcomes, opt.Requester.Do(ctx, opt.Factory(lane, seq)))
	}
	return outcomes
}

// RunSequential issues n requests one after another on the calling
// goroutine. It is the degenerate single-lane case of RunBatch, kept as
// a plain loop rather than a pool of one.
func RunSequential(ctx context.Context, n int, factory Factory, requester Requester) Batch {
	if n < 1 {
		n = 1
	}
	start := time.Now()
	outcomes := make([]Outcome, 0, n)
	for seq := 0; seq < n; seq++ {
		outcomes = append(outcomes, requester.Do(ctx, factory(0, seq)))
	}
	return Batch{Outcomes: outcomes, Duration: time.Since(start)}
}
