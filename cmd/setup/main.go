package main

import (
	"context"
	"flag"
	"fmt"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/database"

	"go.uber.org/zap"
)

// checkAssets compares the decimals in the contracts file with the token contracts.
func checkAssets(ctx context.Context, services *common.Services) int {
	mismatches := 0
	for _, asset := range services.Contracts.Assets {
		onchain, err := services.Chain.Decimals(ctx, asset.Address, asset.Symbol)
		if err != nil {
			zap.L().Error("Failed to read token decimals",
				zap.String("symbol", asset.Symbol),
				zap.String("address", asset.Address),
				zap.Error(err))
			fmt.Printf("✗ %-6s %s: unreadable\n", asset.Symbol, common.ShortHash(asset.Address))
			mismatches++
			continue
		}
		if asset.Decimals != onchain {
			zap.L().Warn("Configured decimals differ from token",
				zap.String("symbol", asset.Symbol),
				zap.Int32("configured", asset.Decimals),
				zap.Int32("onchain", onchain))
			fmt.Printf("✗ %-6s %s: configured %d decimals, token reports %d\n",
				asset.Symbol, common.ShortHash(asset.Address), asset.Decimals, onchain)
			mismatches++
			continue
		}
		fmt.Printf("✓ %-6s %s: %d decimals\n", asset.Symbol, common.ShortHash(asset.Address), onchain)
	}
	return mismatches
}

// checkRegistry lists registry pools that have no pool record yet.
func checkRegistry(ctx context.Context, services *common.Services) {
	if services.Contracts.Registry == "" {
		fmt.Println("\nNo registry configured, skipping registry check")
		return
	}

	created, err := services.Chain.TotalPoolsCreated(ctx)
	if err != nil {
		zap.L().Error("Failed to read pool count from registry", zap.Error(err))
		return
	}
	active, err := services.Chain.ActivePools(ctx)
	if err != nil {
		zap.L().Error("Failed to read active pools from registry", zap.Error(err))
		return
	}

	fmt.Printf("\nRegistry: %d pools created, %d active\n", created, len(active))
	for i, addr := range active {
		tracked := "tracked"
		if _, err := services.DbService.GetPoolByAddress(ctx, addr); err != nil {
			tracked = "NOT TRACKED"
		}
		fmt.Printf("%s %s  %s\n", common.BoxPrefix(i == len(active)-1), addr, tracked)
	}
}

func printSettings(ctx context.Context, dbService *database.Service) {
	settings, err := dbService.ListSettings(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read system settings", zap.Error(err))
	}

	fmt.Printf("\nSystem settings: %d\n", len(settings))
	for i, s := range settings {
		fmt.Printf("%s %-20s = %s\n", common.BoxPrefix(i == len(settings)-1), s.Key, s.Value)
	}
}

func runInit(ctx context.Context, dbService *database.Service) {
	zap.L().Info("Initializing database schema and default settings")

	// Schema and seed rows are applied when the service opens the database.
	printSettings(ctx, dbService)

	zap.L().Info("Initialization complete")
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database only, without contacting the chain")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	cfg.Database.SeedSettings = true

	if *initFlag {
		dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to initialize database", zap.Error(err))
		}
		defer dbService.Close()

		common.PrintHeader("DATABASE INITIALIZED", common.DefaultWidth)
		runInit(ctx, dbService)
		return
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("ENVIRONMENT CHECK", common.DefaultWidth)
	fmt.Printf("Network:   %s (chain id %d)\n", services.Contracts.Network, services.Chain.ChainId())
	fmt.Printf("Manager:   %s\n", services.Contracts.Manager)
	if operator := services.Chain.Operator(); operator != nil {
		fmt.Printf("Operator:  %s\n", operator.Address())
	} else {
		fmt.Println("Operator:  not configured (read-only)")
	}
	fmt.Println()

	mismatches := checkAssets(ctx, services)
	checkRegistry(ctx, services)
	printSettings(ctx, services.DbService)

	if mismatches > 0 {
		common.PrintFooter(fmt.Sprintf("SETUP CHECK FAILED: %d asset(s) misconfigured", mismatches), common.DefaultWidth)
		zap.L().Fatal("Asset configuration does not match the chain", zap.Int("mismatches", mismatches))
	}
	common.PrintFooter("SETUP CHECK PASSED", common.DefaultWidth)
}
