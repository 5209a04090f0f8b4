package testhelper

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func NewTestRedisClient(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")

	if url == "" {
		t.Skipf("skipping due to missing environment variable %v", "REDIS_URL")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
