package bench_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carbonlab/perfbench/internal/bench"
)

// fakeRequester succeeds with a fixed latency unless told to fail.
type fakeRequester struct {
	latency time.Duration
	calls   int64
	fail    func(lane, seq int) bool

	mu   sync.Mutex
	seen map[int][]int // lane -> seq order
}

func (f *fakeRequester) Do(ctx context.Context, req bench.Request) bench.Outcome {
	atomic.AddInt64(&f.calls, 1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return bench.Outcome{Err: ctx.Err().Error()}
		}
	}
	return bench.Outcome{Latency: f.latency, HasLatency: true, StatusCode: 200, Success: true}
}

// recordingRequester tracks per-lane call order via the request path.
type recordingRequester struct {
	mu   sync.Mutex
	seen map[string][]string
}

func (r *recordingRequester) Do(ctx context.Context, req bench.Request) bench.Outcome {
	r.mu.Lock()
	lane := req.Header.Get("X-Lane")
	r.seen[lane] = append(r.seen[lane], req.Path)
	r.mu.Unlock()
	return bench.Outcome{Latency: time.Millisecond, HasLatency: true, StatusCode: 200, Success: true}
}

func laneFactory(lane, seq int) bench.Request {
	h := make(map[string][]string)
	h["X-Lane"] = []string{fmt.Sprintf("%d", lane)}
	return bench.Request{Method: "GET", Path: fmt.Sprintf("/r/%d", seq), Header: h}
}

func TestRunBatchReturnsExactOutcomeCount(t *testing.T) {
	cases := []struct {
		concurrency, perUser int
	}{
		{1, 1},
		{1, 10},
		{4, 25},
		{20, 10},
	}
	for _, tc := range cases {
		req := &fakeRequester{}
		batch := bench.RunBatch(context.Background(), bench.Options{
			Concurrency:     tc.concurrency,
			RequestsPerUser: tc.perUser,
			Factory:         laneFactory,
			Requester:       req,
		})
		want := tc.concurrency * tc.perUser
		if len(batch.Outcomes) != want {
			t.Fatalf("c=%d n=%d: expected %d outcomes, got %d", tc.concurrency, tc.perUser, want, len(batch.Outcomes))
		}
		if atomic.LoadInt64(&req.calls) != int64(want) {
			t.Fatalf("c=%d n=%d: requester called %d times, want %d", tc.concurrency, tc.perUser, req.calls, want)
		}
		if batch.Duration <= 0 {
			t.Fatalf("batch duration not recorded")
		}
	}
}

func TestRunBatchPreservesLaneOrder(t *testing.T) {
	rec := &recordingRequester{seen: map[string][]string{}}
	bench.RunBatch(context.Background(), bench.Options{
		Concurrency:     8,
		RequestsPerUser: 5,
		Factory:         laneFactory,
		Requester:       rec,
	})

	if len(rec.seen) != 8 {
		t.Fatalf("expected 8 lanes, got %d", len(rec.seen))
	}
	for lane, paths := range rec.seen {
		if len(paths) != 5 {
			t.Fatalf("lane %s: expected 5 calls, got %d", lane, len(paths))
		}
		for i, p := range paths {
			want := fmt.Sprintf("/r/%d", i)
			if p != want {
				t.Fatalf("lane %s: call %d was %s, want %s (in-lane order violated)", lane, i, p, want)
			}
		}
	}
}

func TestRunBatchNormalizesInvalidCounts(t *testing.T) {
	req := &fakeRequester{}
	batch := bench.RunBatch(context.Background(), bench.Options{
		Concurrency:     0,
		RequestsPerUser: -3,
		Factory:         laneFactory,
		Requester:       req,
	})
	if len(batch.Outcomes) != 1 {
		t.Fatalf("expected normalization to 1x1, got %d outcomes", len(batch.Outcomes))
	}
}

// failingRequester simulates a transport failure on selected slots.
type failingRequester struct{}

func (failingRequester) Do(ctx context.Context, req bench.Request) bench.Outcome {
	if req.Path == "/r/1" {
		return bench.Outcome{Err: "dial tcp: connection refused"}
	}
	return bench.Outcome{Latency: time.Millisecond, HasLatency: true, StatusCode: 200, Success: true}
}

func TestRunBatchFailureNeverAbortsLane(t *testing.T) {
	batch := bench.RunBatch(context.Background(), bench.Options{
		Concurrency:     3,
		RequestsPerUser: 4,
		Factory:         laneFactory,
		Requester:       failingRequester{},
	})
	if len(batch.Outcomes) != 12 {
		t.Fatalf("expected 12 outcomes, got %d", len(batch.Outcomes))
	}
	failures := 0
	for _, o := range batch.Outcomes {
		if !o.Success {
			failures++
			if !o.TransportFailure() {
				t.Fatalf("expected transport failure classification, got %+v", o)
			}
		}
	}
	if failures != 3 {
		t.Fatalf("expected one failure per lane (3), got %d", failures)
	}
}

func TestRunBatchSlowLanesRunInParallel(t *testing.T) {
	// 8 lanes x 2 requests at 20ms each: parallel lanes finish in ~40ms,
	// serial execution would need ~320ms.
	req := &fakeRequester{latency: 20 * time.Millisecond}
	start := time.Now()
	bench.RunBatch(context.Background(), bench.Options{
		Concurrency:     8,
		RequestsPerUser: 2,
		Factory:         laneFactory,
		Requester:       req,
	})
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("lanes appear serialized: batch took %s", elapsed)
	}
}

func TestRunSequentialExecutesInOrder(t *testing.T) {
	rec := &recordingRequester{seen: map[string][]string{}}
	batch := bench.RunSequential(context.Background(), 6, laneFactory, rec)
	if len(batch.Outcomes) != 6 {
		t.Fatalf("expected 6 outcomes, got %d", len(batch.Outcomes))
	}
	paths := rec.seen["0"]
	for i, p := range paths {
		want := fmt.Sprintf("/r/%d", i)
		if p != want {
			t.Fatalf("call %d was %s, want %s", i, p, want)
		}
	}
}

func TestRequestExpectedStatusDefaults(t *testing.T) {
	if got := (bench.Request{}).ExpectedStatus(); got != 200 {
		t.Fatalf("default expected status = %d, want 200", got)
	}
	if got := (bench.Request{AcceptStatus: 201}).ExpectedStatus(); got != 201 {
		t.Fatalf("expected status = %d, want 201", got)
	}
}
