package model

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/magiconair/properties/assert"
)

func TestRunReportAttributesByChunkIdentity(t *testing.T) {
	report := NewRunReport()

	// concurrent, out of order completion
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label := fmt.Sprintf("%08d_to_%08d", i*10, i*10+9)
			if i%10 == 0 {
				report.Failed("blocks", label, "timeout", 4, errors.New("deadline exceeded"))
			} else {
				report.Completed("blocks", label, 10, "out/"+label)
			}
		}(i)
	}
	wg.Wait()
	report.Finish()

	summary := report.Summary()
	assert.Equal(t, summary.Total, 50)
	assert.Equal(t, summary.Completed, 45)
	assert.Equal(t, summary.Failed, 5)
	assert.Equal(t, summary.Rows, 450)

	outcome, ok := report.Outcome("blocks", "00000100_to_00000109")
	if !ok {
		t.Fatalf("missing outcome for chunk 10")
	}
	assert.Equal(t, outcome.Status, StatusFailed)
	assert.Equal(t, outcome.ErrKind, "timeout")
	assert.Equal(t, outcome.Attempts, 4)
	assert.Equal(t, len(report.Failures()), 5)
}

func TestRunReportErr(t *testing.T) {
	report := NewRunReport()
	report.Completed("blocks", "a", 1, "out/a")
	if report.Err() != nil {
		t.Fatalf("all-completed run should not error")
	}

	report.Failed("blocks", "b", "transport", 2, errors.New("boom"))
	var partial *PartialRunFailure
	if !errors.As(report.Err(), &partial) {
		t.Fatalf("expected a partial run failure, got %v", report.Err())
	}
	assert.Equal(t, partial.Failed, 1)
	assert.Equal(t, partial.Total, 2)
}
