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
	"os/signal"
	"syscall"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting Piron pool API", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	authenticator, err := server.NewAuthenticator(cfg.Auth)
	if err != nil {
		zap.L().Fatal("Failed to configure token verification", zap.Error(err))
	}

	srv := server.NewServer(server.ServerConfig{
		Service:       services.ApiService(cfg),
		Authenticator: authenticator,
		HTTP:          cfg.Server,
	})

	if err := srv.Run(ctx); err != nil {
		zap.L().Fatal("Server stopped with error", zap.Error(err))
	}

	zap.L().Info("Server stopped gracefully")
}
