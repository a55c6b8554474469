package model

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type OutcomeStatus int

const (
	StatusCompleted OutcomeStatus = iota
	StatusFailed
)

// ChunkOutcome is the final state of one (dataset, chunk) pair.
type ChunkOutcome struct {
	Dataset  string
	Label    string
	Status   OutcomeStatus
	Rows     int
	Output   string
	ErrKind  string
	Attempts int
	Resumed  bool
	Err      error
}

// RunReport accumulates per-chunk outcomes for one invocation. Updates are
// keyed by (dataset, chunk label) so out of order completion never
// misattributes a result.
type RunReport struct {
	mu       sync.Mutex
	started  time.Time
	finished time.Time
	outcomes map[string]ChunkOutcome
	order    []string
}

func NewRunReport() *RunReport {
	return &RunReport{
		started:  time.Now(),
		outcomes: map[string]ChunkOutcome{},
	}
}

func key(dataset, label string) string {
	return dataset + "/" + label
}

func (r *RunReport) record(o ChunkOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(o.Dataset, o.Label)
	if _, ok := r.outcomes[k]; !ok {
		r.order = append(r.order, k)
	}
	r.outcomes[k] = o
}

func (r *RunReport) Completed(dataset, label string, rows int, output string) {
	r.record(ChunkOutcome{Dataset: dataset, Label: label, Status: StatusCompleted, Rows: rows, Output: output})
}

// Resumed marks a chunk whose output already existed, so no network work
// was performed for it.
func (r *RunReport) Resumed(dataset, label, output string) {
	r.record(ChunkOutcome{Dataset: dataset, Label: label, Status: StatusCompleted, Output: output, Resumed: true})
}

func (r *RunReport) Failed(dataset, label, kind string, attempts int, err error) {
	r.record(ChunkOutcome{Dataset: dataset, Label: label, Status: StatusFailed, ErrKind: kind, Attempts: attempts, Err: err})
}

func (r *RunReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = time.Now()
}

func (r *RunReport) Outcome(dataset, label string) (ChunkOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[key(dataset, label)]
	return o, ok
}

// Outcomes returns every outcome ordered by dataset then chunk label.
func (r *RunReport) Outcomes() []ChunkOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	sort.Strings(keys)
	out := make([]ChunkOutcome, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.outcomes[k])
	}
	return out
}

func (r *RunReport) Failures() []ChunkOutcome {
	failures := []ChunkOutcome{}
	for _, o := range r.Outcomes() {
		if o.Status == StatusFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

type Summary struct {
	Total     int
	Completed int
	Failed    int
	Rows      int
	Elapsed   time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("%d chunks: %d completed, %d failed, %d rows in %s",
		s.Total, s.Completed, s.Failed, s.Rows, s.Elapsed.Round(time.Millisecond))
}

func (r *RunReport) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{Total: len(r.outcomes)}
	for _, o := range r.outcomes {
		switch o.Status {
		case StatusCompleted:
			s.Completed++
			s.Rows += o.Rows
		case StatusFailed:
			s.Failed++
		}
	}
	end := r.finished
	if end.IsZero() {
		end = time.Now()
	}
	s.Elapsed = end.Sub(r.started)
	return s
}

// Err reports a PartialRunFailure when any chunk failed, nil otherwise.
func (r *RunReport) Err() error {
	s := r.Summary()
	if s.Failed > 0 {
		return &PartialRunFailure{Failed: s.Failed, Total: s.Total}
	}
	return nil
}
