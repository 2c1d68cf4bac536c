package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]interface{}

	err := repo.Get(context.Background(), "analytics:class_exam:1:2:-", &dest)

	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "key", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewCacheRepository(client, nil)
	defer repo.Close() //nolint:errcheck

	var dest map[string]interface{}
	err := repo.Get(context.Background(), "analytics:student:4", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Contains(t, err.Error(), "redis get analytics:student:4")

	err = repo.Set(context.Background(), "analytics:student:4", map[string]int{"a": 1}, time.Minute)
	require.Error(t, err)

	assert.Error(t, repo.Ping(context.Background()))
}
