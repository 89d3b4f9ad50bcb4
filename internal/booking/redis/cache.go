package redis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"

	"ms-booking/internal/models"

	"github.com/go-redis/redis/v8"
)

const availabilityKeyPrefix = "event_avail:"

// Cache holds the per-event availability projection in Redis so the hot
// availability read path stays off the inventory row. Entries are
// invalidated by the booking service after every committed mutation, with a
// TTL as backstop.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{Client: client, TTL: availabilityTTL()}
}

// availabilityTTL reads EVENT_AVAIL_TTL_SECONDS, defaulting to 30 seconds.
func availabilityTTL() time.Duration {
	defaultTTL := 30 * time.Second
	ttlStr := os.Getenv("EVENT_AVAIL_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}
	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil || ttlSec <= 0 {
		return defaultTTL
	}
	return time.Duration(ttlSec) * time.Second
}

// GetAvailability returns the cached projection, or (nil, nil) on a miss.
func (c *Cache) GetAvailability(ctx context.Context, eventID string) (*models.EventAvailability, error) {
	raw, err := c.Client.Get(ctx, availabilityKeyPrefix+eventID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var avail models.EventAvailability
	if err := json.Unmarshal([]byte(raw), &avail); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.Client.Del(ctx, availabilityKeyPrefix+eventID).Err()
		return nil, nil
	}
	return &avail, nil
}

func (c *Cache) SetAvailability(ctx context.Context, avail models.EventAvailability) error {
	raw, err := json.Marshal(avail)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, availabilityKeyPrefix+avail.EventID, raw, c.TTL).Err()
}

// InvalidateEvent drops the cached projection after a committed mutation.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID string) error {
	return c.Client.Del(ctx, availabilityKeyPrefix+eventID).Err()
}
