// Package cache holds the short-lived slot-availability cache. Staleness
// here directly causes false "available" states in the UI, so entries carry
// a TTL of a few seconds and every booking write invalidates the day.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"slotify/internal/domain"
)

type SlotKey struct {
	StoreID         string
	Date            domain.Date
	TechnicianID    *uuid.UUID
	DurationMinutes int
}

type Entry struct {
	Starts []domain.TimeOfDay `json:"starts"`
	Reason string             `json:"reason,omitempty"`
}

type SlotCache interface {
	Get(ctx context.Context, key SlotKey) (Entry, bool, error)
	Set(ctx context.Context, key SlotKey, entry Entry) error
	InvalidateDay(ctx context.Context, storeID string, date domain.Date) error
}

type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

const DefaultTTL = 5 * time.Second

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisSlotCache{client: client, ttl: ttl}
}

func (c *RedisSlotCache) Get(ctx context.Context, key SlotKey) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is equivalent to a miss; it expires on its own.
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *RedisSlotCache) Set(ctx context.Context, key SlotKey, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key.String(), raw, c.ttl).Err()
}

func (c *RedisSlotCache) InvalidateDay(ctx context.Context, storeID string, date domain.Date) error {
	iter := c.client.Scan(ctx, 0, dayPrefix(storeID, date)+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (k SlotKey) String() string {
	tech := "any"
	if k.TechnicianID != nil {
		tech = k.TechnicianID.String()
	}
	return dayPrefix(k.StoreID, k.Date) + tech + ":" + strconv.Itoa(k.DurationMinutes)
}

func dayPrefix(storeID string, date domain.Date) string {
	return "slots:" + storeID + ":" + date.String() + ":"
}

// NopSlotCache lets the service run without redis: every lookup misses and
// invalidation is a no-op.
type NopSlotCache struct{}

func (NopSlotCache) Get(ctx context.Context, key SlotKey) (Entry, bool, error) {
	return Entry{}, false, nil
}

func (NopSlotCache) Set(ctx context.Context, key SlotKey, entry Entry) error { return nil }

func (NopSlotCache) InvalidateDay(ctx context.Context, storeID string, date domain.Date) error {
	return nil
}
