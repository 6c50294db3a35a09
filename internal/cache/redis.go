package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache is the Pro tier cache, also serving as the remote layer of
// TwoPhaseCache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis. Returns nil, nil on miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value under the namespaced key with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.makeKey(key), value, ttl).Err()
}

// Delete removes the namespaced key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.makeKey(key)).Err()
}

// GetRecords retrieves a patient's cached metric history.
func (c *RedisCache) GetRecords(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	data, err := c.Get(ctx, historyKey(patientID))
	if err != nil || data == nil {
		return nil, err
	}

	var records []*domain.MetricRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SetRecords caches a patient's metric history.
func (c *RedisCache) SetRecords(ctx context.Context, patientID string, records []*domain.MetricRecord, ttl time.Duration) error {
	bytes, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.Set(ctx, historyKey(patientID), bytes, ttl)
}

// InvalidateRecords drops a patient's cached metric history.
func (c *RedisCache) InvalidateRecords(ctx context.Context, patientID string) error {
	return c.Delete(ctx, historyKey(patientID))
}

// Ping reports Redis reachability.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(key string) string {
	return "cardea:" + key
}
