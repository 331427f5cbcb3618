// Package cache keeps short-lived pool status snapshots in Redis so admin
// dashboards polling the status endpoint do not hammer the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pool-transcoder/pkg/models"
)

const statsKeyPrefix = "pool:transcoding:stats:"

type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*StatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(client, ttl), nil
}

func New(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats, or ok=false on a miss.
func (c *StatsCache) Get(ctx context.Context, projectID uuid.UUID) (models.PoolStats, bool, error) {
	data, err := c.client.Get(ctx, key(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PoolStats{}, false, nil
	}
	if err != nil {
		return models.PoolStats{}, false, err
	}

	var stats models.PoolStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return models.PoolStats{}, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, projectID uuid.UUID, stats models.PoolStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(projectID), data, c.ttl).Err()
}

// Invalidate drops the snapshot after a transition changed the counts.
func (c *StatsCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	return c.client.Del(ctx, key(projectID)).Err()
}

func (c *StatsCache) Close() error {
	return c.client.Close()
}

func key(projectID uuid.UUID) string {
	return statsKeyPrefix + projectID.String()
}
