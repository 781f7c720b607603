package async

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/pipeline"
)

type fakeProcessor struct {
	delay time.Duration
	fail  map[string]bool
}

func (f fakeProcessor) ProcessFile(ctx context.Context, jobID uuid.UUID, path string, _ int) pipeline.Result {
	res := pipeline.Result{JobID: jobID, Path: path, Status: constants.JobStatusExtracted}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		res.Status, res.Err = constants.JobStatusFailed, ctx.Err()
		return res
	}
	if common.RunIDFromContext(ctx) != jobID.String() {
		res.Status, res.Err = constants.JobStatusFailed, errors.New("run id missing from context")
	}
	if f.fail[path] {
		res.Status, res.Err = constants.JobStatusFailed, errors.New("boom")
	}
	return res
}

type collector struct {
	mu      sync.Mutex
	results []pipeline.Result
}

func (c *collector) add(r pipeline.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func TestProcessorQueue_ProcessesAll(t *testing.T) {
	c := &collector{}
	q := NewProcessorQueue(fakeProcessor{fail: map[string]bool{"b.pdf": true}}, nil,
		WithWorkers(3), WithQueueSize(2), WithResultHandler(c.add))

	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"} {
		require.NoError(t, q.Enqueue(context.Background(), NewJob(p, 0)))
	}
	q.Shutdown(context.Background())

	require.Len(t, c.results, 5)
	sort.Slice(c.results, func(i, j int) bool { return c.results[i].Path < c.results[j].Path })
	for _, r := range c.results {
		if r.Path == "b.pdf" {
			assert.Equal(t, constants.JobStatusFailed, r.Status)
			assert.EqualError(t, r.Err, "boom")
			continue
		}
		assert.Equal(t, constants.JobStatusExtracted, r.Status, r.Path)
		assert.NoError(t, r.Err)
	}
}

func TestProcessorQueue_Timeout(t *testing.T) {
	c := &collector{}
	q := NewProcessorQueue(fakeProcessor{delay: time.Second}, nil,
		WithWorkers(1), WithProcessTimeout(20*time.Millisecond), WithResultHandler(c.add))

	require.NoError(t, q.Enqueue(context.Background(), NewJob("slow.pdf", 0)))
	q.Shutdown(context.Background())

	require.Len(t, c.results, 1)
	assert.ErrorIs(t, c.results[0].Err, context.DeadlineExceeded)
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(fakeProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), NewJob("late.pdf", 0))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

type panickingProcessor struct{ fakeProcessor }

func (p panickingProcessor) ProcessFile(ctx context.Context, jobID uuid.UUID, path string, taxYear int) pipeline.Result {
	if path == "bad.pdf" {
		panic("corrupt xref")
	}
	return p.fakeProcessor.ProcessFile(ctx, jobID, path, taxYear)
}

func TestProcessorQueue_PanicBecomesFailedResult(t *testing.T) {
	c := &collector{}
	q := NewProcessorQueue(panickingProcessor{}, nil, WithWorkers(1), WithResultHandler(c.add))

	require.NoError(t, q.Enqueue(context.Background(), NewJob("bad.pdf", 0)))
	require.NoError(t, q.Enqueue(context.Background(), NewJob("good.pdf", 0)))
	q.Shutdown(context.Background())

	require.Len(t, c.results, 2)
	sort.Slice(c.results, func(i, j int) bool { return c.results[i].Path < c.results[j].Path })
	assert.Equal(t, "bad.pdf", c.results[0].Path)
	assert.Equal(t, constants.JobStatusFailed, c.results[0].Status)
	assert.EqualError(t, c.results[0].Err, "panic while processing: corrupt xref")
	assert.Equal(t, constants.JobStatusExtracted, c.results[1].Status)
}
