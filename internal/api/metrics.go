package api

import (
	"context"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/pool"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const platformMetricsKey = "platform"

// PlatformMetrics summarises the pool book. It is served from the cache when one
// is configured; cache errors fall back to computing from the store.
func (s *Service) PlatformMetrics(ctx context.Context) (*models.PlatformMetrics, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, platformMetricsKey)
		if err != nil {
			zap.L().Warn("Metrics cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	pools, err := s.dbService.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	m := computePlatformMetrics(pools)

	if s.cache != nil {
		if err := s.cache.Set(ctx, platformMetricsKey, m); err != nil {
			zap.L().Warn("Metrics cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func computePlatformMetrics(pools []models.Pool) *models.PlatformMetrics {
	m := &models.PlatformMetrics{
		TotalValueLocked: decimal.Zero,
		PoolCount:        len(pools),
		PoolsByStatus:    make(map[models.PoolStatus]int),
		GeneratedAt:      time.Now().UTC(),
	}

	var apySum float64
	for i := range pools {
		p := &pools[i]
		m.TotalValueLocked = m.TotalValueLocked.Add(p.TotalRaised)
		m.TotalInvestors += p.TotalInvestors
		m.PoolsByStatus[p.Status]++
		apySum += pool.ExpectedAPY(p)
	}
	if len(pools) > 0 {
		m.AverageAPY = apySum / float64(len(pools))
	}
	return m
}

func (s *Service) invalidateMetrics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, platformMetricsKey); err != nil {
		zap.L().Warn("Metrics cache invalidation failed", zap.Error(err))
	}
}
