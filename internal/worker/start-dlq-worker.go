package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/entity"
	"github.com/xenn00/ruready-server/internal/queue"
)

const dlqPopTimeout = 10 * time.Second

// StartDLQWorker moves dead jobs from the Redis DLQ list into the DLQ store.
func (wp *WorkerPool) StartDLQWorker(ctx context.Context) {
	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()

		log.Info().Msg("DLQ worker started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("DLQ worker stopping")
				return
			default:
				wp.persistNextDLQ(ctx, dlqPopTimeout)
			}
		}
	}()
}

func (wp *WorkerPool) persistNextDLQ(ctx context.Context, timeout time.Duration) bool {
	result, err := wp.Redis.BLPop(ctx, timeout, queue.DLQKey).Result()
	if errors.Is(err, redis.Nil) {
		return false
	} else if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("DLQWorker pop failed")
			wp.sleep(ctx)
		}
		return false
	}

	payload := result[1]
	var job queue.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Warn().Err(err).Msg("DLQWorker invalid job payload")
		return false
	}

	log.Error().
		Str("job_id", job.ID).
		Str("type", job.Type).
		Str("error", job.ErrorMsg).
		Msg("DLQ Job detected")

	now := wp.now().UTC()
	dlqDoc := entity.DLQJob{
		JobID:              job.ID,
		Type:               job.Type,
		Payload:            []byte(payload),
		Status:             DLQStatusPending,
		RetryCount:         0,
		OriginalRetryCount: job.Retry,
		ErrorMsg:           job.ErrorMsg,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpireAt:           now.Add(dlqRetention),
	}

	if err := wp.DLQ.Save(ctx, dlqDoc); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist DLQ job")

		// put it back so the next pass can try again
		wp.Redis.RPush(context.WithoutCancel(ctx), queue.DLQKey, payload)
		wp.sleep(ctx)
		return false
	}

	log.Info().Str("job_id", job.ID).Msg("DLQ job persisted")
	return true
}

type DLQStats struct {
	Pending  int64            `json:"pending"`
	Dead     int64            `json:"dead"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// GetDLQStats reports Redis queue depths next to persisted dead jobs per status.
func (wp *WorkerPool) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	producer := &queue.RedisProducer{Redis: wp.Redis}
	pending, dead, err := producer.Stats(ctx)
	if err != nil {
		return nil, err
	}

	byStatus, err := wp.DLQ.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &DLQStats{Pending: pending, Dead: dead, ByStatus: byStatus}, nil
}
