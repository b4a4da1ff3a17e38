//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *RedisClient {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := NewRedisClient(endpoint, "", 0)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCache_RoundTripAndLock(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(setupRedis(t).Client, "test")

	type detail struct {
		Symbol string `json:"symbol"`
		Supply string `json:"supply"`
	}

	var got detail
	found, err := c.Get(ctx, "coin:0xabc", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "coin:0xabc", detail{Symbol: "ALICE1", Supply: "1000"}, time.Minute))
	found, err = c.Get(ctx, "coin:0xabc", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ALICE1", got.Symbol)

	ok, err := c.SetNX(ctx, "lock:1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.SetNX(ctx, "lock:1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "lock:1", "coin:0xabc"))
	found, err = c.Get(ctx, "coin:0xabc", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
