package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"piron-pools-go/internal/api"
	"piron-pools-go/internal/chain"
	"piron-pools-go/internal/database"
	"piron-pools-go/internal/listener"
	"piron-pools-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Chain     *chain.Client
	Contracts *models.ContractsConfig
	Cache     *api.MetricsCache
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, loads the contracts file and dials the
// chain. The Redis metrics cache is optional and only connected when REDIS_URL is set.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	zap.L().Info("Loading contracts configuration", zap.String("file", cfg.Chain.ContractsFile))
	contracts, err := LoadContractsConfig(cfg.Chain.ContractsFile)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Contracts = contracts

	chainClient, err := chain.Dial(ctx, cfg.Chain, contracts)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Chain = chainClient
	zap.L().Info("Using network",
		zap.String("network", contracts.Network),
		zap.Int64("chain_id", contracts.ChainId),
		zap.String("manager", contracts.Manager))

	if cfg.Redis.URL != "" {
		cache, err := api.NewMetricsCache(cfg.Redis)
		if err != nil {
			services.Close()
			return nil, err
		}
		if err := cache.Ping(ctx); err != nil {
			zap.L().Warn("Metrics cache unreachable, serving uncached metrics", zap.Error(err))
		}
		services.Cache = cache
	}

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without a chain connection
// Useful for read-only operations like listing pools and transactions
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// Reconciler binds the chain client to the store.
func (cs *Services) Reconciler() *listener.Reconciler {
	return listener.NewReconciler(cs.Chain, cs.DbService)
}

// ApiService builds the request-facing service on top of the initialized dependencies.
func (cs *Services) ApiService(cfg *models.Config) *api.Service {
	return api.NewService(api.ServiceConfig{
		DbService:  cs.DbService,
		Reconciler: cs.Reconciler(),
		Policy:     cfg.Policy,
		Cache:      cs.Cache,
	})
}

func (cs *Services) Close() {
	if cs.Cache != nil {
		if err := cs.Cache.Close(); err != nil {
			zap.L().Warn("Failed to close metrics cache", zap.Error(err))
		}
	}
	if cs.Chain != nil {
		cs.Chain.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

// RequireOperator fails when no operator key was configured for write commands.
func (cs *Services) RequireOperator() (*chain.Transactor, error) {
	operator := cs.Chain.Operator()
	if operator == nil {
		return nil, fmt.Errorf("%w: set OPERATOR_PRIVATE_KEY", chain.ErrNoOperatorKey)
	}
	return operator, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
