package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	rediscache "ms-booking/internal/booking/redis"
	"ms-booking/internal/models"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis container. Skipped in -short runs and
// on machines without Docker.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("could not start Redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAvailabilityCacheRoundTrip(t *testing.T) {
	client := setupRedis(t)
	cache := rediscache.NewCache(client)
	ctx := context.Background()

	// Miss before anything is stored.
	avail, err := cache.GetAvailability(ctx, "event-1")
	require.NoError(t, err)
	assert.Nil(t, avail)

	stored := models.EventAvailability{
		EventID:          "event-1",
		Capacity:         100,
		AvailableTickets: 42,
		SoldOut:          false,
	}
	require.NoError(t, cache.SetAvailability(ctx, stored))

	avail, err = cache.GetAvailability(ctx, "event-1")
	require.NoError(t, err)
	require.NotNil(t, avail)
	assert.Equal(t, stored, *avail)
}

func TestAvailabilityCacheInvalidate(t *testing.T) {
	client := setupRedis(t)
	cache := rediscache.NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.SetAvailability(ctx, models.EventAvailability{
		EventID:          "event-2",
		Capacity:         10,
		AvailableTickets: 0,
		SoldOut:          true,
	}))

	require.NoError(t, cache.InvalidateEvent(ctx, "event-2"))

	avail, err := cache.GetAvailability(ctx, "event-2")
	require.NoError(t, err)
	assert.Nil(t, avail)

	// Invalidating an absent key is not an error.
	assert.NoError(t, cache.InvalidateEvent(ctx, "event-2"))
}

func TestAvailabilityCacheCorruptEntryIsAMiss(t *testing.T) {
	client := setupRedis(t)
	cache := rediscache.NewCache(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "event_avail:event-3", "not-json", time.Minute).Err())

	avail, err := cache.GetAvailability(ctx, "event-3")
	require.NoError(t, err)
	assert.Nil(t, avail)
}
