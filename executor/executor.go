// Package executor is the bounded-concurrency engine that pulls chunks,
// throttles their round trips against a shared token bucket, retries
// transient failures with exponential backoff and reports per-chunk
// outcomes.
package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/client"
	"github.com/exvulsec/permafrost/model"
)

type Options struct {
	MaxWorkers        int
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	Jitter            bool
	FailFast          bool
}

func (o Options) withDefaults() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = 2
	}
	return o
}

// PlanFunc lists the round trips for one chunk, HandleFunc consumes the raw
// payloads once every round trip succeeded. The executor never inspects
// payloads itself.
type PlanFunc func(ch chunk.Chunk) []model.Operation

type HandleFunc func(ch chunk.Chunk, raws [][]byte) error

// Outcome is the terminal state of one chunk.
type Outcome struct {
	Chunk    chunk.Chunk
	Attempts int
	Skipped  bool
	Err      error
}

type Executor struct {
	source  client.Source
	limiter *rate.Limiter
	workers chan struct{}
	opts    Options
}

// New builds an executor around a shared rate limiter. The limiter is
// shared so concurrent datasets draw from one request budget.
func New(source client.Source, limiter *rate.Limiter, opts Options) *Executor {
	opts = opts.withDefaults()
	return &Executor{
		source:  source,
		limiter: limiter,
		workers: make(chan struct{}, opts.MaxWorkers),
		opts:    opts,
	}
}

// Execute processes the chunks with at most MaxWorkers in flight. Chunks
// are dispatched in order but may complete in any order; each outcome is
// attributed by the chunk's own index. With FailFast set the first failure
// cancels dispatch of not-yet-started chunks while in-flight chunks drain.
func (e *Executor) Execute(ctx context.Context, chunks []chunk.Chunk, plan PlanFunc, handle HandleFunc) []Outcome {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]Outcome, len(chunks))
	var wg sync.WaitGroup
	for i, ch := range chunks {
		select {
		case e.workers <- struct{}{}:
			if runCtx.Err() != nil {
				<-e.workers
				outcomes[i] = Outcome{Chunk: ch, Skipped: true, Err: runCtx.Err()}
				continue
			}
		case <-runCtx.Done():
			outcomes[i] = Outcome{Chunk: ch, Skipped: true, Err: runCtx.Err()}
			continue
		}
		wg.Add(1)
		go func(i int, ch chunk.Chunk) {
			defer func() {
				<-e.workers
				wg.Done()
			}()
			outcomes[i] = e.processChunk(runCtx, ch, plan, handle)
			if outcomes[i].Err != nil && e.opts.FailFast {
				cancel()
			}
		}(i, ch)
	}
	wg.Wait()
	return outcomes
}

func (e *Executor) processChunk(ctx context.Context, ch chunk.Chunk, plan PlanFunc, handle HandleFunc) Outcome {
	ops := plan(ch)
	raws := make([][]byte, len(ops))
	attempts := 0
	for i, op := range ops {
		raw, n, err := e.roundTrip(ctx, op)
		if n > attempts {
			attempts = n
		}
		if err != nil {
			logrus.Errorf("chunk %s: %s gave up after %d attempts: %v", ch.Label(), op.Method, n, err)
			return Outcome{Chunk: ch, Attempts: attempts, Err: err}
		}
		raws[i] = raw
	}
	// past the last round trip the chunk always commits, even when the
	// run is being cancelled
	if err := handle(ch, raws); err != nil {
		return Outcome{Chunk: ch, Attempts: attempts, Err: err}
	}
	return Outcome{Chunk: ch, Attempts: attempts}
}

type tripState int

const (
	stateAttempting tripState = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

// roundTrip runs one operation through the retry state machine. It returns
// the raw payload and the number of attempts made. Waiting for a token,
// the call itself and the backoff delay are all cancellable.
func (e *Executor) roundTrip(ctx context.Context, op model.Operation) ([]byte, int, error) {
	var (
		state   = stateAttempting
		attempt = 0
		raw     []byte
		lastErr error
	)
	for {
		switch state {
		case stateAttempting:
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, attempt, err
			}
			attempt++
			var err error
			raw, err = e.source.Call(ctx, op)
			switch {
			case err == nil:
				state = stateSucceeded
			case client.Retryable(err) && attempt <= e.opts.MaxRetries:
				lastErr = err
				state = stateBackoff
			default:
				lastErr = err
				state = stateFailed
			}
		case stateBackoff:
			delay := e.backoff(attempt - 1)
			logrus.Debugf("%s attempt %d failed, retrying in %s: %v", op.Method, attempt, delay, lastErr)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				state = stateAttempting
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, ctx.Err()
			}
		case stateSucceeded:
			return raw, attempt, nil
		case stateFailed:
			return nil, attempt, lastErr
		}
	}
}

func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.opts.BackoffBase)
	for i := 0; i < attempt; i++ {
		delay *= e.opts.BackoffMultiplier
	}
	if e.opts.Jitter {
		delay = delay/2 + rand.Float64()*delay/2
	}
	return time.Duration(delay)
}
