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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single sync pass over all pools and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting Piron pool sync listener",
		zap.Duration("polling_interval", cfg.Listener.PollingInterval),
		zap.Duration("pool_timeout", cfg.Listener.PoolTimeout))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	l := listener.NewPoolListener(listener.PoolListenerConfig{
		Reconciler:      services.Reconciler(),
		DbService:       services.DbService,
		Registry:        services.Chain,
		PollingInterval: cfg.Listener.PollingInterval,
		PoolTimeout:     cfg.Listener.PoolTimeout,
	})

	if *once {
		synced, failed := l.SyncOnce(ctx)
		zap.L().Info("Single sync pass finished", zap.Int("synced", synced), zap.Int("failed", failed))
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	if err := l.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start listener", zap.Error(err))
	}

	zap.L().Info("Listener running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping listener...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Listener stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
