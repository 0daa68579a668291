package worker

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/entity"
	"github.com/xenn00/ruready-server/internal/queue"
)

func (wp *WorkerPool) StartDLQRetryConsumer(ctx context.Context) {
	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()

		log.Info().Msg("DLQ retry consumer started")
		ticker := time.NewTicker(wp.DLQConfig.RetryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("DLQ retry consumer stopping")
				return
			case <-ticker.C:
				wp.processDLQJobs(ctx)
			}
		}
	}()
}

func (wp *WorkerPool) processDLQJobs(ctx context.Context) {
	dlqJobs, err := wp.DLQ.FindRetryable(ctx, wp.now(), wp.DLQConfig.MaxRetryCount, wp.DLQConfig.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query DLQ jobs")
		return
	}

	if len(dlqJobs) == 0 {
		log.Debug().Msg("No DLQ jobs to process")
		return
	}

	log.Info().Int("count", len(dlqJobs)).Msg("Processing DLQ jobs")

	for i := range dlqJobs {
		if ctx.Err() != nil {
			return
		}
		wp.retryDLQJob(ctx, &dlqJobs[i])
	}
}

func (wp *WorkerPool) retryDLQJob(ctx context.Context, dlqJob *entity.DLQJob) {
	if err := wp.DLQ.MarkProcessing(ctx, dlqJob.ID); err != nil {
		log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to update DLQ job status")
		return
	}

	var originalJob queue.Job
	if err := json.Unmarshal(dlqJob.Payload, &originalJob); err != nil {
		log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to unmarshal job payload")
		if err := wp.DLQ.MarkInvalid(ctx, dlqJob.ID, "invalid_payload", err.Error()); err != nil {
			log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to mark DLQ job as invalid")
		}
		return
	}

	// fresh attempt
	originalJob.Retry = 0
	originalJob.ErrorMsg = ""

	if err := wp.Handler.Handle(ctx, originalJob); err != nil {
		wp.handleDLQRetryFailure(ctx, dlqJob, err.Error())
		return
	}

	if err := wp.DLQ.MarkCompleted(ctx, dlqJob.ID); err != nil {
		log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to mark DLQ job as completed")
	}

	log.Info().Str("job_id", dlqJob.JobID).Str("type", dlqJob.Type).Int("dlq_retry_count", dlqJob.RetryCount).Msg("DLQ job successfully retried")
}

func (wp *WorkerPool) handleDLQRetryFailure(ctx context.Context, dlqJob *entity.DLQJob, errorMsg string) {
	newRetryCount := dlqJob.RetryCount + 1

	if newRetryCount >= wp.DLQConfig.MaxRetryCount {
		if err := wp.DLQ.MarkPermanentlyFailed(ctx, dlqJob.ID, errorMsg); err != nil {
			log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to mark DLQ job as permanently failed")
		}
		log.Error().Str("job_id", dlqJob.JobID).Str("type", dlqJob.Type).Int("dlq_retry_count", newRetryCount).Msg("DLQ job permanently failed after max retries")
		return
	}

	backoff := time.Duration(float64(wp.DLQConfig.RetryInterval) * math.Pow(wp.DLQConfig.BackoffFactor, float64(newRetryCount)))
	nextRetryAt := wp.now().UTC().Add(backoff)

	if err := wp.DLQ.MarkRetry(ctx, dlqJob.ID, newRetryCount, errorMsg, nextRetryAt); err != nil {
		log.Error().Err(err).Str("job_id", dlqJob.JobID).Msg("Failed to update DLQ job retry info")
		return
	}

	log.Warn().
		Str("job_id", dlqJob.JobID).
		Str("type", dlqJob.Type).
		Int("dlq_retry_count", newRetryCount).
		Time("next_retry_at", nextRetryAt).
		Msg("DLQ job scheduled for retry")
}
