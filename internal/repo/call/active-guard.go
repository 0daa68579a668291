package call_repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

const activeCallKeyPrefix = "call:active:"

// all-or-nothing: no key is written unless every participant is free
var acquireScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	if redis.call('EXISTS', key) == 1 then
		return 0
	end
end
for i, key in ipairs(KEYS) do
	redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// only delete keys still owned by this call
var releaseScript = redis.NewScript(`
local n = 0
for i, key in ipairs(KEYS) do
	if redis.call('GET', key) == ARGV[1] then
		redis.call('DEL', key)
		n = n + 1
	end
end
return n
`)

// ActiveCallGuard keeps at most one live call per participant. Keys expire
// after the max call duration so a crashed instance cannot lock users out.
type ActiveCallGuard struct {
	rdb *redis.Client
}

func NewActiveCallGuard(rdb *redis.Client) ActiveCallGuardContract {
	return &ActiveCallGuard{rdb: rdb}
}

func ActiveCallKey(uid string) string {
	return activeCallKeyPrefix + uid
}

func keysFor(uids []string) []string {
	keys := make([]string, 0, len(uids))
	for _, uid := range uids {
		keys = append(keys, ActiveCallKey(uid))
	}
	return keys
}

func (g *ActiveCallGuard) Acquire(ctx context.Context, callID string, ttl time.Duration, uids ...string) (bool, *app_error.AppError) {
	if len(uids) == 0 {
		return false, app_error.NewAppError(http.StatusBadRequest, "no participants", "participants")
	}
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}

	ok, err := acquireScript.Run(ctx, g.rdb, keysFor(uids), callID, ttl.Milliseconds()).Int()
	if err != nil {
		log.Error().Err(err).Str("call_id", callID).Msg("failed to acquire active call guard")
		return false, app_error.NewAppError(http.StatusInternalServerError, "Failed to start call", "redis")
	}
	return ok == 1, nil
}

func (g *ActiveCallGuard) Release(ctx context.Context, callID string, uids ...string) *app_error.AppError {
	if len(uids) == 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, g.rdb, keysFor(uids), callID).Err(); err != nil {
		log.Error().Err(err).Str("call_id", callID).Msg("failed to release active call guard")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to release call", "redis")
	}
	return nil
}

func (g *ActiveCallGuard) Current(ctx context.Context, uid string) (string, *app_error.AppError) {
	callID, err := g.rdb.Get(ctx, ActiveCallKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to read active call guard")
		return "", app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch call", "redis")
	}
	return callID, nil
}
