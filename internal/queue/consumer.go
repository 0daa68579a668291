package queue

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 0, 64)
}

// ClaimDue pops the next due job. ZREM decides ownership, so concurrent
// pollers on several instances never run the same job twice.
func ClaimDue(ctx context.Context, rdb *redis.Client, now time.Time) (string, bool, error) {
	result, err := rdb.ZRangeByScore(ctx, PriorityQueueKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    formatScore(DueScore(now.Unix())),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(result) == 0 {
		return "", false, nil
	}

	payload := result[0]
	removed, err := rdb.ZRem(ctx, PriorityQueueKey, payload).Result()
	if err != nil {
		return "", false, err
	}
	if removed == 0 {
		// another poller got it first
		return "", false, nil
	}
	return payload, true, nil
}

func (p *RedisProducer) Stats(ctx context.Context) (pending int64, dlq int64, err error) {
	pending, err = p.Redis.ZCard(ctx, PriorityQueueKey).Result()
	if err != nil {
		return 0, 0, err
	}
	dlq, err = p.Redis.LLen(ctx, DLQKey).Result()
	return pending, dlq, err
}
