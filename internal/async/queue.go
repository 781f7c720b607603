package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one W-2 document waiting to be processed.
type Job struct {
	ID          uuid.UUID
	Path        string
	TaxYear     int // 0 = resolve from the document
	SubmittedAt time.Time
}

// NewJob stamps a job for path with a fresh id.
func NewJob(path string, taxYear int) Job {
	return Job{ID: uuid.New(), Path: path, TaxYear: taxYear, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
