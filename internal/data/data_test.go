package data

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentGuard/internal/model"
)

func TestNewData_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb, redisCleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, rdb)
	defer redisCleanup()

	cache := NewContentCache(rdb)

	d, cleanup, err := NewData(nil, log.DefaultLogger, rdb, cache)
	require.NoError(t, err)
	require.NotNil(t, d)
	defer cleanup()

	assert.Same(t, cache, d.GetCache())
	assert.Same(t, rdb, d.GetRedisClient())
}

func TestNewData_WithoutRedis(t *testing.T) {
	// Startup must survive a missing Redis: the content cache degrades to
	// its local tier and the offline queue reports unavailable.
	cache := NewContentCache(nil)

	d, cleanup, err := NewData(nil, log.DefaultLogger, nil, cache)
	require.NoError(t, err)
	require.NotNil(t, d)
	defer cleanup()

	assert.Nil(t, d.GetRedisClient())

	ctx := context.Background()
	require.NoError(t, d.GetCache().Set(ctx, CacheKeyPostList, []model.PostPreview{{ID: "p1"}}, TTLPostList))

	var posts []model.PostPreview
	require.NoError(t, d.GetCache().Get(ctx, CacheKeyPostList, &posts))
	assert.Equal(t, "p1", posts[0].ID)
}
