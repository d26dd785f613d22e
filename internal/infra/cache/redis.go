package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supplychain/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// 注文ごとの追跡タイムラインを置く
type TrackingRedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func NewTrackingRedisCache(client *redis.Client, ttl time.Duration) *TrackingRedisCache {
	return &TrackingRedisCache{client: client, ttl: ttl}
}

func TrackingKey(orderID int64) string {
	return fmt.Sprintf("tracking:order:%d", orderID)
}

// なければ (nil, false, nil)
func (c *TrackingRedisCache) Get(ctx context.Context, orderID int64) ([]model.TrackingEvent, bool, error) {
	val, err := c.client.Get(ctx, TrackingKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var events []model.TrackingEvent
	if err := json.Unmarshal(val, &events); err != nil {
		//壊れた値は捨てる
		_ = c.client.Del(ctx, TrackingKey(orderID)).Err()
		return nil, false, fmt.Errorf("decode tracking cache: %w", err)
	}
	return events, true, nil
}

func (c *TrackingRedisCache) Set(ctx context.Context, orderID int64, events []model.TrackingEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode tracking cache: %w", err)
	}
	return c.client.Set(ctx, TrackingKey(orderID), data, c.ttl).Err()
}

func (c *TrackingRedisCache) Invalidate(ctx context.Context, orderID int64) error {
	return c.client.Del(ctx, TrackingKey(orderID)).Err()
}

func (c *TrackingRedisCache) Close() error {
	return c.client.Close()
}
