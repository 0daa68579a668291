package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/queue"
	"github.com/xenn00/ruready-server/internal/utils/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultPollInterval = time.Second
	retryBaseDelay      = 5 * time.Second
)

type WorkerPool struct {
	Redis        *redis.Client
	WorkerNum    int
	JobChannel   chan string
	Handler      JobHandler
	DLQ          DLQStore
	DLQConfig    types.DLQRetryConfig
	PollInterval time.Duration
	Now          func() time.Time
	wg           sync.WaitGroup
}

func NewWorkerPool(rdb *redis.Client, workerNum int, handler JobHandler, dlq DLQStore) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	return &WorkerPool{
		Redis:        rdb,
		WorkerNum:    workerNum,
		JobChannel:   make(chan string, 100),
		Handler:      handler,
		DLQ:          dlq,
		DLQConfig:    types.DefaultDLQRetryConfig(),
		PollInterval: defaultPollInterval,
		Now:          time.Now,
	}
}

func (wp *WorkerPool) now() time.Time {
	if wp.Now != nil {
		return wp.Now()
	}
	return time.Now()
}

func (wp *WorkerPool) Start(ctx context.Context) {
	log.Info().Msgf("Starting worker pool with %d workers", wp.WorkerNum)

	for i := 0; i < wp.WorkerNum; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer close(wp.JobChannel)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping worker pool")
				return
			default:
			}

			payload, ok, err := queue.ClaimDue(ctx, wp.Redis, wp.now())
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("Worker: failed to claim job")
				}
				wp.sleep(ctx)
				continue
			}
			if !ok {
				wp.sleep(ctx)
				continue
			}

			select {
			case wp.JobChannel <- payload:
			case <-ctx.Done():
				// hand the claimed job back so another instance picks it up
				wp.requeue(context.WithoutCancel(ctx), payload)
				return
			}
		}
	}()
}

func (wp *WorkerPool) sleep(ctx context.Context) {
	t := time.NewTimer(wp.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (wp *WorkerPool) requeue(ctx context.Context, payload string) {
	var job queue.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return
	}
	if err := queue.NewProducer(wp.Redis).Enqueue(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to requeue job on shutdown")
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Info().Msgf("Worker %d started", id)

	for payload := range wp.JobChannel {
		wp.process(ctx, id, payload)
	}
	log.Info().Msgf("Worker %d stopping", id)
}

func (wp *WorkerPool) process(ctx context.Context, id int, payload string) {
	var job queue.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Warn().Err(err).Msgf("Worker %d: Failed to unmarshal job payload", id)
		return
	}

	now := wp.now()
	if job.ExpireAt > 0 && now.Unix() > job.ExpireAt {
		log.Warn().Str("job_id", job.ID).Str("type", job.Type).Msg("job expired before it could run, dropping")
		return
	}

	if err := wp.Handler.Handle(ctx, job); err != nil {
		wp.handleFailure(ctx, job, err)
		return
	}
	log.Debug().Str("job_id", job.ID).Str("type", job.Type).Msgf("Worker %d: job done", id)
}

func (wp *WorkerPool) handleFailure(ctx context.Context, job queue.Job, err error) {
	job.Retry++
	job.ErrorMsg = err.Error()
	ctx = context.WithoutCancel(ctx)

	now := wp.now()
	if errors.Is(err, queue.ErrNoRetry) || job.Retry >= job.MaxRetry || now.Unix() > job.ExpireAt {
		log.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).Msg("Job moved to DLQ")
		dlqBytes, _ := json.Marshal(job)
		if err := wp.Redis.RPush(ctx, queue.DLQKey, dlqBytes).Err(); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("failed to push job to DLQ")
		}
		alertDeadLetter(job, now)
		return
	}

	// exponential backoff: 10s, 20s, 40s...
	delay := retryBaseDelay * time.Duration(1<<job.Retry)
	job.RunAt = now.Add(delay).Unix()
	if err := queue.NewProducer(wp.Redis).Enqueue(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reschedule job")
		return
	}
	log.Warn().Err(err).Str("job_id", job.ID).Str("type", job.Type).
		Msgf("Retrying in %v seconds (%d/%d)", delay.Seconds(), job.Retry, job.MaxRetry)
}

var (
	dlaCache = make(map[string]time.Time)
	dlaMu    sync.Mutex
)

// alertDeadLetter logs at most one alert per job type every ten minutes.
func alertDeadLetter(job queue.Job, now time.Time) {
	dlaMu.Lock()
	defer dlaMu.Unlock()

	if last, ok := dlaCache[job.Type]; ok && now.Sub(last) < 10*time.Minute {
		return
	}

	log.Error().Str("job_id", job.ID).Str("type", job.Type).Str("error", job.ErrorMsg).Msg("Dead Letter Alert: Job failed permanently")
	dlaCache[job.Type] = now
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	log.Info().Msg("All workers have stopped")
}
