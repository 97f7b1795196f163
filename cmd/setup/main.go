package main

import (
	"context"
	"errors"
	"fmt"

	"ecobottle-ledger-go/internal/common"
	"ecobottle-ledger-go/internal/config"
	"ecobottle-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

type fleetStats struct {
	registered int
	skipped    int
	failed     []string
}

func initializeGlobalState(ctx context.Context, services *common.Services, authority string, ecocPerKG, minWeight uint64) {
	err := services.Ledger.Initialize(ctx, ledger.InitializeParams{
		Authority:        authority,
		EcocPerKG:        ecocPerKG,
		MinDepositWeight: minWeight,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyInitialized) {
			zap.L().Info("Ledger already initialized, keeping existing configuration")
			return
		}
		zap.L().Fatal("Failed to initialize ledger", zap.Error(err))
	}
	fmt.Printf("✓ Ledger initialized (authority: %s, rate: %d ECOC/kg, min deposit: %dg)\n",
		authority, ecocPerKG, minWeight)
}

func registerFleet(ctx context.Context, services *common.Services, authority string, containers []common.ContainerConfig) fleetStats {
	stats := fleetStats{}

	for _, cc := range containers {
		_, err := services.Ledger.RegisterContainer(ctx, ledger.RegisterContainerParams{
			Authority:   authority,
			ContainerID: cc.ID,
			Location:    cc.Location,
			CapacityKG:  cc.CapacityKG,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrContainerExists) {
				fmt.Printf("✓ %s: already registered\n", cc.ID)
				stats.skipped++
				continue
			}
			zap.L().Error("Failed to register container",
				zap.String("container_id", cc.ID),
				zap.Error(err))
			fmt.Printf("✗ %s: registration failed\n", cc.ID)
			stats.failed = append(stats.failed, cc.ID)
			continue
		}
		fmt.Printf("✓ %s: registered at %s (%d kg)\n", cc.ID, cc.Location, cc.CapacityKG)
		stats.registered++
	}

	return stats
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("RECYCLING LEDGER SETUP", common.DefaultWidth)

	initializeGlobalState(ctx, services, cfg.Authority, cfg.Reward.EcocPerKG, cfg.Reward.MinDepositWeight)

	zap.L().Info("Loading container fleet configuration", zap.String("file", cfg.ContainersFile))
	containers, err := common.LoadFleetConfig(cfg.ContainersFile)
	if err != nil {
		zap.L().Fatal("Failed to load container fleet config", zap.Error(err))
	}
	zap.L().Info("Fleet configuration loaded", zap.Int("count", len(containers)))

	stats := registerFleet(ctx, services, cfg.Authority, containers)

	summary := fmt.Sprintf("SETUP COMPLETE: %d registered, %d already present, %d failed",
		stats.registered, stats.skipped, len(stats.failed))
	common.PrintFooter(summary, common.DefaultWidth)

	if len(stats.failed) > 0 {
		zap.L().Warn("Setup completed with failures", zap.Strings("failed_containers", stats.failed))
	}
}
