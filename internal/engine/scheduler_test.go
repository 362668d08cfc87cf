package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4intel/internal/domain"
)

type fakeReporter struct {
	mu      sync.Mutex
	url     string
	results []domain.BatchResult
	err     error
}

func (f *fakeReporter) ReportBatch(_ context.Context, callbackURL string, result domain.BatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = callbackURL
	f.results = append(f.results, result)
	return f.err
}

func newTestScheduler(rep *fakeReporter) *Scheduler {
	in := NewInspector(&stubReputation{}, stubNetwork{}, nil, nil, discardLogger())
	return NewScheduler(2, in, rep, discardLogger())
}

func TestRunAll_KeepsInputOrder(t *testing.T) {
	s := newTestScheduler(&fakeReporter{})
	input := []string{"8.8.8.8", "bogus", "1.1.1.1", "9.9.9.9", "300.0.0.1"}

	reports := s.RunAll(context.Background(), input)
	require.Len(t, reports, len(input))

	assert.Equal(t, "8.8.8.8", reports[0].IP)
	assert.Empty(t, reports[0].Error)
	assert.NotNil(t, reports[0].Network)

	assert.Equal(t, "bogus", reports[1].IP)
	assert.NotEmpty(t, reports[1].Error)
	assert.Nil(t, reports[1].Reputation)

	assert.Equal(t, "1.1.1.1", reports[2].IP)
	assert.Equal(t, "9.9.9.9", reports[3].IP)
	assert.Equal(t, "300.0.0.1", reports[4].IP)
	assert.NotEmpty(t, reports[4].Error)
}

func TestRunAll_Empty(t *testing.T) {
	s := newTestScheduler(&fakeReporter{})
	assert.Empty(t, s.RunAll(context.Background(), nil))
}

func TestNewScheduler_ClampsParallelism(t *testing.T) {
	s := NewScheduler(0, nil, nil, discardLogger())
	assert.Equal(t, 1, s.maxParallel)
}

func TestRunAndDeliver(t *testing.T) {
	rep := &fakeReporter{}
	s := newTestScheduler(rep)

	s.RunAndDeliver(context.Background(), "batch-1", []string{"8.8.8.8", "1.1.1.1"}, "http://hook.test/done")

	require.Len(t, rep.results, 1)
	assert.Equal(t, "http://hook.test/done", rep.url)
	assert.Equal(t, "batch-1", rep.results[0].BatchID)
	assert.Len(t, rep.results[0].Reports, 2)
	assert.False(t, rep.results[0].DoneAt.IsZero())
}

func TestRunAndDeliver_ReporterFailure(t *testing.T) {
	rep := &fakeReporter{err: errors.New("HTTP 500")}
	s := newTestScheduler(rep)

	assert.NotPanics(t, func() {
		s.RunAndDeliver(context.Background(), "batch-2", []string{"8.8.8.8"}, "http://hook.test/done")
	})
	assert.Len(t, rep.results, 1)
}

func TestStream_EmitsEveryIndexOnce(t *testing.T) {
	s := newTestScheduler(&fakeReporter{})
	input := []string{"8.8.8.8", "1.1.1.1", "nope", "9.9.9.9"}

	seen := make(map[int]domain.Report)
	s.Stream(context.Background(), input, func(idx int, report domain.Report) {
		_, dup := seen[idx]
		assert.False(t, dup, "index %d emitted twice", idx)
		seen[idx] = report
	})

	require.Len(t, seen, len(input))
	for i, raw := range input {
		assert.Equal(t, raw, seen[i].IP)
	}
	assert.NotEmpty(t, seen[2].Error)
}
