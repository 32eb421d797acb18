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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"piron-pools-go/internal/models"
)

func Load() (*models.Config, error) {
	pollingInterval, err := getEnvDuration("SYNC_POLLING_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, err
	}

	poolTimeout, err := getEnvDuration("SYNC_POOL_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	// Deposit recording blocks on the receipt, so writes get the receipt timeout plus slack.
	depositReceiptTimeout, err := getEnvDuration("DEPOSIT_RECEIPT_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", depositReceiptTimeout+30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	receiptPollInterval, err := getEnvDuration("RECEIPT_POLL_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, err
	}

	metricsCacheTTL, err := getEnvDuration("METRICS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "piron.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			SeedSettings:    getEnvBool("SEED_SYSTEM_SETTINGS", true),
		},
		Listener: models.ListenerConfig{
			PollingInterval: pollingInterval,
			PoolTimeout:     poolTimeout,
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:    getEnvInt("RATE_LIMIT_RPS", 10),
			RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Auth: models.AuthConfig{
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			JWTPublicKeyPEM: os.Getenv("AUTH_JWT_PUBLIC_KEY"),
			Issuer:          os.Getenv("AUTH_JWT_ISSUER"),
		},
		Chain: models.ChainConfig{
			RPCURL:                os.Getenv("CHAIN_RPC_URL"),
			ContractsFile:         getEnvString("CONTRACTS_FILE", "contracts.yaml"),
			OperatorPrivateKey:    os.Getenv("OPERATOR_PRIVATE_KEY"),
			ReceiptPollInterval:   receiptPollInterval,
			DepositReceiptTimeout: depositReceiptTimeout,
			GasLimit:              uint64(getEnvInt("CHAIN_GAS_LIMIT", 500000)),
		},
		Redis: models.RedisConfig{
			URL:             os.Getenv("REDIS_URL"),
			MetricsCacheTTL: metricsCacheTTL,
		},
		Policy: models.PolicyConfig{
			KYCPreventDowngrade:   getEnvBool("KYC_PREVENT_DOWNGRADE", false),
			AdminBootstrapEnabled: getEnvBool("ADMIN_BOOTSTRAP_ENABLED", true),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
