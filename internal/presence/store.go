// Package presence tracks which users hold at least one realtime connection.
// State lives in Redis so every instance sees the same picture.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "presence:"
	DefaultTTL = 5 * time.Minute
)

var connectScript = redis.NewScript(`
local c = redis.call('HINCRBY', KEYS[1], 'conns', 1)
redis.call('HSET', KEYS[1], 'online', 1, 'last_seen', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return c
`)

// returns 1 only on the transition to zero connections
var disconnectScript = redis.NewScript(`
local c = redis.call('HINCRBY', KEYS[1], 'conns', -1)
if c < 0 then
	redis.call('HSET', KEYS[1], 'conns', 0)
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 0
end
if c == 0 then
	redis.call('HSET', KEYS[1], 'online', 0, 'last_seen', ARGV[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'last_seen', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

type Status struct {
	UserID   string
	Online   bool
	LastSeen time.Time
	Conns    int64
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore keys expire after ttl without a Touch, which clears state left
// behind by an instance that died without closing its sockets.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func Key(uid string) string {
	return keyPrefix + uid
}

func (s *Store) Connect(ctx context.Context, uid string, at time.Time) (bool, error) {
	n, err := connectScript.Run(ctx, s.rdb, []string{Key(uid)}, at.UnixMilli(), s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("presence connect %s: %w", uid, err)
	}
	return n == 1, nil
}

func (s *Store) Disconnect(ctx context.Context, uid string, at time.Time) (bool, error) {
	n, err := disconnectScript.Run(ctx, s.rdb, []string{Key(uid)}, at.UnixMilli(), s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("presence disconnect %s: %w", uid, err)
	}
	return n == 1, nil
}

func (s *Store) Touch(ctx context.Context, uid string, at time.Time) error {
	if err := touchScript.Run(ctx, s.rdb, []string{Key(uid)}, at.UnixMilli(), s.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("presence touch %s: %w", uid, err)
	}
	return nil
}

// Get reports an unknown user as offline with a zero LastSeen.
func (s *Store) Get(ctx context.Context, uid string) (*Status, error) {
	vals, err := s.rdb.HGetAll(ctx, Key(uid)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("presence get %s: %w", uid, err)
	}

	st := &Status{UserID: uid}
	if len(vals) == 0 {
		return st, nil
	}

	st.Conns, _ = strconv.ParseInt(vals["conns"], 10, 64)
	st.Online = vals["online"] == "1" && st.Conns > 0
	if ms, perr := strconv.ParseInt(vals["last_seen"], 10, 64); perr == nil {
		st.LastSeen = time.UnixMilli(ms)
	}
	return st, nil
}
