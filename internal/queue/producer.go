package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	PriorityQueueKey = "priority_queue"
	DLQKey           = "priority_queue_dlq"
)

type Producer interface {
	Enqueue(ctx context.Context, job Job) error
}

type RedisProducer struct {
	Redis *redis.Client
}

func NewProducer(redis *redis.Client) Producer {
	return &RedisProducer{Redis: redis}
}

func (p *RedisProducer) Enqueue(ctx context.Context, job Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	runAt := job.RunAt
	if runAt == 0 {
		runAt = job.CreatedAt
	}
	return p.Redis.ZAdd(ctx, PriorityQueueKey, redis.Z{
		Score:  Score(runAt, job.Priority),
		Member: jobBytes,
	}).Err()
}
