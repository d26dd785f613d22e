package cache_test

import (
	"context"
	"testing"
	"time"

	"supplychain/internal/domain/model"
	"supplychain/internal/infra/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *cache.TrackingRedisCache {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test (-short)")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	endpoint, err := rc.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := cache.NewRedisClient(ctx, endpoint)
	require.NoError(t, err)

	c := cache.NewTrackingRedisCache(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTrackingKey(t *testing.T) {
	assert.Equal(t, "tracking:order:42", cache.TrackingKey(42))
}

func TestTrackingRedisCache_RoundTrip(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	events := []model.TrackingEvent{
		{ID: 1, OrderID: 7, FromUserID: 1, ToUserID: 2, Status: model.OrderStatusPending, Description: "Order placed for 1 x Tea",
			Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{ID: 2, OrderID: 7, FromUserID: 2, ToUserID: 1, Status: model.OrderStatusApproved, Description: "Order approved by seller. Stock reserved.",
			Timestamp: time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)},
	}
	require.NoError(t, c.Set(ctx, 7, events))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, model.OrderStatusApproved, got[1].Status)
	assert.True(t, events[1].Timestamp.Equal(got[1].Timestamp))

	require.NoError(t, c.Invalidate(ctx, 7))
	_, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
