package worker

import (
	"context"

	"github.com/xenn00/ruready-server/internal/queue"
)

// JobHandler runs one job. A nil error acks it, any other error schedules a
// retry unless it wraps queue.ErrNoRetry.
type JobHandler interface {
	Handle(ctx context.Context, job queue.Job) error
}

type JobHandlerFunc func(ctx context.Context, job queue.Job) error

func (f JobHandlerFunc) Handle(ctx context.Context, job queue.Job) error {
	return f(ctx, job)
}
