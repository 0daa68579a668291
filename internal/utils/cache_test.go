package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cached struct {
	Name string `json:"name"`
}

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	miss, appErr := GetCacheData[cached](ctx, rdb, "user:1")
	require.Nil(t, appErr)
	assert.Nil(t, miss)

	require.NoError(t, SetCacheData(ctx, rdb, "user:1", &cached{Name: "alice"}, time.Minute))

	got, appErr := GetCacheData[cached](ctx, rdb, "user:1")
	require.Nil(t, appErr)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Name)

	require.NoError(t, DeleteCacheData(ctx, rdb, "user:1"))
	assert.False(t, mr.Exists("user:1"))
}

func TestGetCacheData_Corrupt(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set("user:2", "{not json"))

	_, appErr := GetCacheData[cached](context.Background(), rdb, "user:2")
	require.NotNil(t, appErr)
	assert.Equal(t, 500, appErr.Code)
}
