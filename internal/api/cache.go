package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"piron-pools-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const metricsNamespace = "piron:metrics"

// MetricsCache stores the computed platform metrics in Redis.
type MetricsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewMetricsCache connects to the Redis URL. The connection is lazy; use Ping to check it.
func NewMetricsCache(cfg models.RedisConfig) (*MetricsCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return newMetricsCache(redis.NewClient(opts), cfg.MetricsCacheTTL), nil
}

func newMetricsCache(client redis.UniversalClient, ttl time.Duration) *MetricsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MetricsCache{client: client, ttl: ttl}
}

func (c *MetricsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *MetricsCache) Close() error {
	return c.client.Close()
}

func (c *MetricsCache) key(name string) string {
	return metricsNamespace + ":" + name
}

// Get returns the cached value, or nil on a miss.
func (c *MetricsCache) Get(ctx context.Context, name string) (*models.PlatformMetrics, error) {
	data, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m models.PlatformMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt cached metrics: %w", err)
	}
	return &m, nil
}

func (c *MetricsCache) Set(ctx context.Context, name string, m *models.PlatformMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(name), data, c.ttl).Err()
}

func (c *MetricsCache) Delete(ctx context.Context, name string) error {
	return c.client.Del(ctx, c.key(name)).Err()
}
