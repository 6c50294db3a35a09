package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// New builds the configured cache: an in-process LRU for the Community
// tier, Redis for Pro, or a TwoPhaseCache when two-phase is enabled.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache layers a local LRU (L1) over Redis (L2). Reads are
// answered locally when possible; Redis stays authoritative across
// nodes.
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache wires the LRU layer over a fresh Redis connection.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get checks L1 before L2; an L2 hit is written back to L1.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes through to both layers.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// L1 gets the shorter of its own TTL and the requested one
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}

	return c.remote.Set(ctx, key, value, ttl)
}

// Delete removes key from both layers.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, key)
}

// GetRecords retrieves a patient's cached history, L1 first.
func (c *TwoPhaseCache) GetRecords(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	records, err := c.local.GetRecords(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if records != nil {
		return records, nil
	}

	records, err = c.remote.GetRecords(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if records != nil {
		_ = c.local.SetRecords(ctx, patientID, records, c.l1TTL)
	}

	return records, nil
}

// SetRecords caches a patient's history in both L1 and L2.
func (c *TwoPhaseCache) SetRecords(ctx context.Context, patientID string, records []*domain.MetricRecord, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetRecords(ctx, patientID, records, l1TTL); err != nil {
		return err
	}
	return c.remote.SetRecords(ctx, patientID, records, ttl)
}

// InvalidateRecords drops a patient's history from both layers. L2 is
// the source of truth for other nodes, so it is invalidated even when
// L1 fails.
func (c *TwoPhaseCache) InvalidateRecords(ctx context.Context, patientID string) error {
	l1Err := c.local.InvalidateRecords(ctx, patientID)
	if err := c.remote.InvalidateRecords(ctx, patientID); err != nil {
		return err
	}
	return l1Err
}

// Ping requires both layers to be reachable.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close releases both layers.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats reports the L1 layer only.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
