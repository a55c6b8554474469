package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
	"golang.org/x/time/rate"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/client"
	"github.com/exvulsec/permafrost/model"
)

// fakeSource scripts per-call outcomes and records call counts.
type fakeSource struct {
	mu         sync.Mutex
	calls      int
	inFlight   atomic.Int64
	maxInUse   atomic.Int64
	delay      time.Duration
	respond    func(op model.Operation, call int) (json.RawMessage, error)
}

func (s *fakeSource) Name() string {
	return "fake"
}

func (s *fakeSource) Call(ctx context.Context, op model.Operation) (json.RawMessage, error) {
	inUse := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInUse.Load()
		if inUse <= max || s.maxInUse.CompareAndSwap(max, inUse) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.respond == nil {
		return json.RawMessage(`{}`), nil
	}
	return s.respond(op, call)
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func blockChunks(n int) []chunk.Chunk {
	chunks, err := chunk.Partition(chunk.BlockRange{Start: 0, End: uint64(n) - 1}, 1, false)
	if err != nil {
		panic(err)
	}
	return chunks
}

func onePlan(ch chunk.Chunk) []model.Operation {
	return []model.Operation{{Method: "eth_getBlockByNumber", Params: []any{ch.Start, false}}}
}

func noopHandle(chunk.Chunk, [][]byte) error {
	return nil
}

func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestRetryTermination(t *testing.T) {
	source := &fakeSource{
		respond: func(model.Operation, int) (json.RawMessage, error) {
			return nil, &client.FetchError{Kind: client.FailTransport, Method: "eth_getBlockByNumber", Err: errors.New("boom")}
		},
	}
	exec := New(source, testLimiter(), Options{
		MaxWorkers:  1,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
	})
	outcomes := exec.Execute(context.Background(), blockChunks(1), onePlan, noopHandle)
	if outcomes[0].Err == nil {
		t.Fatalf("chunk should have failed")
	}
	// initial attempt plus MaxRetries retries
	assert.Equal(t, outcomes[0].Attempts, 4)
	assert.Equal(t, source.callCount(), 4)
}

func TestTerminalErrorsAreNotRetried(t *testing.T) {
	for _, kind := range []client.FailKind{client.FailMalformed, client.FailNotFound} {
		source := &fakeSource{
			respond: func(model.Operation, int) (json.RawMessage, error) {
				return nil, &client.FetchError{Kind: kind, Method: "eth_getBlockByNumber", Err: errors.New("nope")}
			},
		}
		exec := New(source, testLimiter(), Options{MaxWorkers: 1, MaxRetries: 5, BackoffBase: time.Millisecond})
		outcomes := exec.Execute(context.Background(), blockChunks(1), onePlan, noopHandle)
		assert.Equal(t, outcomes[0].Attempts, 1, kind.String())
		assert.Equal(t, source.callCount(), 1, kind.String())
	}
}

func TestRetryThenSucceed(t *testing.T) {
	source := &fakeSource{
		respond: func(_ model.Operation, call int) (json.RawMessage, error) {
			if call <= 2 {
				return nil, &client.FetchError{Kind: client.FailRateLimited, Method: "eth_getBlockByNumber", Err: errors.New("slow down")}
			}
			return json.RawMessage(`{}`), nil
		},
	}
	exec := New(source, testLimiter(), Options{MaxWorkers: 1, MaxRetries: 3, BackoffBase: time.Millisecond})
	outcomes := exec.Execute(context.Background(), blockChunks(1), onePlan, noopHandle)
	if outcomes[0].Err != nil {
		t.Fatalf("chunk should have recovered, got %v", outcomes[0].Err)
	}
	assert.Equal(t, outcomes[0].Attempts, 3)
}

func TestPartialFailureIsolation(t *testing.T) {
	source := &fakeSource{}
	exec := New(source, testLimiter(), Options{MaxWorkers: 4, BackoffBase: time.Millisecond})
	chunks := blockChunks(8)
	poisoned := chunks[3].Label()
	handle := func(ch chunk.Chunk, raws [][]byte) error {
		if ch.Label() == poisoned {
			return fmt.Errorf("forced decode failure")
		}
		return nil
	}
	outcomes := exec.Execute(context.Background(), chunks, onePlan, handle)
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			assert.Equal(t, o.Chunk.Label(), poisoned)
		}
	}
	assert.Equal(t, failed, 1)
}

func TestFailFastSkipsPendingChunks(t *testing.T) {
	source := &fakeSource{
		delay: 5 * time.Millisecond,
		respond: func(model.Operation, int) (json.RawMessage, error) {
			return nil, &client.FetchError{Kind: client.FailNotFound, Method: "eth_getBlockByNumber", Err: errors.New("missing")}
		},
	}
	exec := New(source, testLimiter(), Options{MaxWorkers: 1, FailFast: true, BackoffBase: time.Millisecond})
	outcomes := exec.Execute(context.Background(), blockChunks(5), onePlan, noopHandle)
	if outcomes[0].Skipped {
		t.Fatalf("first chunk should have run")
	}
	skipped := 0
	for _, o := range outcomes[1:] {
		if o.Skipped {
			skipped++
		}
	}
	assert.Equal(t, skipped, 4)
	assert.Equal(t, source.callCount(), 1)
}

func TestConcurrencyBound(t *testing.T) {
	source := &fakeSource{delay: 10 * time.Millisecond}
	exec := New(source, testLimiter(), Options{MaxWorkers: 2, BackoffBase: time.Millisecond})
	exec.Execute(context.Background(), blockChunks(8), onePlan, noopHandle)
	if got := source.maxInUse.Load(); got > 2 {
		t.Fatalf("observed %d concurrent calls, limit is 2", got)
	}
}

func TestRateLimitThrottlesRoundTrips(t *testing.T) {
	source := &fakeSource{}
	limiter := rate.NewLimiter(200, 1)
	exec := New(source, limiter, Options{MaxWorkers: 4, BackoffBase: time.Millisecond})
	start := time.Now()
	exec.Execute(context.Background(), blockChunks(10), onePlan, noopHandle)
	// 10 round trips at 200/s with burst 1 cannot finish faster than ~45ms
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("10 round trips finished in %s, rate limit not applied", elapsed)
	}
}

func TestOutcomesKeepChunkIdentity(t *testing.T) {
	source := &fakeSource{}
	exec := New(source, testLimiter(), Options{MaxWorkers: 4, BackoffBase: time.Millisecond})
	chunks := blockChunks(16)
	outcomes := exec.Execute(context.Background(), chunks, onePlan, noopHandle)
	for i, o := range outcomes {
		assert.Equal(t, o.Chunk.Label(), chunks[i].Label())
	}
}
