/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

// PoolListenerConfig contains configuration for PoolListener
type PoolListenerConfig struct {
	Reconciler      *Reconciler
	DbService       store.PoolStore
	Registry        Registry
	PollingInterval time.Duration
	PoolTimeout     time.Duration
}

// PoolListener periodically mirrors on-chain pool state into the store
type PoolListener struct {
	reconciler *Reconciler
	dbService  store.PoolStore
	registry   Registry

	pollingInterval time.Duration
	poolTimeout     time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewPoolListener(cfg PoolListenerConfig) *PoolListener {
	return &PoolListener{
		reconciler:      cfg.Reconciler,
		dbService:       cfg.DbService,
		registry:        cfg.Registry,
		pollingInterval: cfg.PollingInterval,
		poolTimeout:     cfg.PoolTimeout,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start checks the registry once and begins the sync loop.
func (l *PoolListener) Start(ctx context.Context) error {
	zap.L().Info("Starting pool sync listener")

	if l.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %s", l.pollingInterval)
	}

	if err := l.checkRegistry(ctx); err != nil {
		zap.L().Warn("Registry check failed", zap.Error(err))
	}

	go l.pollLoop(ctx)

	zap.L().Info("Pool sync listener started",
		zap.Duration("polling_interval", l.pollingInterval),
		zap.Duration("pool_timeout", l.poolTimeout))

	return nil
}

// Stop gracefully stops the listener
func (l *PoolListener) Stop() {
	zap.L().Info("Stopping pool sync listener")
	close(l.stopChan)
	<-l.doneChan
	zap.L().Info("Pool sync listener stopped")
}

func (l *PoolListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()

	l.SyncOnce(ctx)

	for {
		select {
		case <-ticker.C:
			l.SyncOnce(ctx)
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

// SyncOnce reconciles every pool that has a pool and manager address. A failing
// pool is logged and skipped.
func (l *PoolListener) SyncOnce(ctx context.Context) (synced, failed int) {
	pools, err := l.dbService.ListPools(ctx)
	if err != nil {
		zap.L().Error("Failed to list pools for sync", zap.Error(err))
		return 0, 0
	}

	var targets []models.Pool
	for _, p := range pools {
		if hasChainAddresses(&p) {
			targets = append(targets, p)
		}
	}

	fmt.Printf("\n%s[%s] Syncing %d pools%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(targets), colorReset)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range targets {
		wg.Add(1)

		go func(p models.Pool) {
			defer wg.Done()

			result, err := l.syncWithTimeout(ctx, &p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				fmt.Printf("  %s✗ %s (%s): %s%s\n", colorRed, p.Name, shortId(p.Id), err, colorReset)
				zap.L().Error("Failed to sync pool",
					zap.String("pool_id", p.Id),
					zap.String("pool_address", p.PoolAddress),
					zap.Error(err))
				return
			}
			synced++
			fmt.Printf("  %s✓ %s %s raised %s investors %d%s\n",
				colorGreen, p.Name, result.Status, result.TotalRaised, result.TotalInvestors, colorReset)
		}(p)
	}

	wg.Wait()
	return synced, failed
}

func (l *PoolListener) syncWithTimeout(ctx context.Context, p *models.Pool) (*models.SyncResult, error) {
	if l.poolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.poolTimeout)
		defer cancel()
	}
	return l.reconciler.syncPool(ctx, p)
}

// checkRegistry logs active registry pools that have no pool record.
func (l *PoolListener) checkRegistry(ctx context.Context) error {
	if l.registry == nil {
		return nil
	}

	active, err := l.registry.ActivePools(ctx)
	if err != nil {
		return fmt.Errorf("failed to read active pools: %w", err)
	}

	var missing []string
	for _, addr := range active {
		if _, err := l.dbService.GetPoolByAddress(ctx, addr); err != nil {
			missing = append(missing, addr)
		}
	}

	if len(missing) > 0 {
		zap.L().Warn("Active registry pools without a pool record",
			zap.Int("active", len(active)),
			zap.Strings("missing", missing))
	} else {
		zap.L().Info("All active registry pools are tracked", zap.Int("active", len(active)))
	}
	return nil
}
