package main

import (
	"context"
	"flag"
	"fmt"

	"ecobottle-ledger-go/internal/common"
	"ecobottle-ledger-go/internal/config"
	"ecobottle-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	toggleFlag := flag.String("toggle", "", "Container id whose active status to flip")
	rateFlag := flag.Uint64("rate", 0, "New reward rate in ECOC per kg (0 = leave unchanged)")
	minWeightFlag := flag.Uint64("min-weight", 0, "New minimum deposit weight in grams (0 = leave unchanged)")
	flag.Parse()

	if *toggleFlag == "" && *rateFlag == 0 && *minWeightFlag == 0 {
		zap.L().Fatal("Nothing to do: pass --toggle, --rate, or --min-weight")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *rateFlag != 0 || *minWeightFlag != 0 {
		params := ledger.UpdateConfigParams{Authority: cfg.Authority}
		if *rateFlag != 0 {
			params.NewEcocPerKG = rateFlag
		}
		if *minWeightFlag != 0 {
			params.NewMinDepositWeight = minWeightFlag
		}
		if err := services.Ledger.UpdateConfig(ctx, params); err != nil {
			zap.L().Fatal("Failed to update config", zap.Error(err))
		}
	}

	if *toggleFlag != "" {
		container, err := services.Ledger.ToggleContainerStatus(ctx, ledger.ToggleContainerParams{
			Authority:   cfg.Authority,
			ContainerID: *toggleFlag,
		})
		if err != nil {
			zap.L().Fatal("Failed to toggle container status", zap.Error(err))
		}
		status := "inactive"
		if container.IsActive {
			status = "active"
		}
		fmt.Printf("✓ Container %s is now %s\n", container.ContainerID, status)
	}

	global, err := services.Ledger.GetGlobalState(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read global state", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("LEDGER CONFIGURATION", common.DefaultWidth)
	fmt.Printf("Authority:          %s\n", global.Authority)
	fmt.Printf("Reward Rate:        %d ECOC/kg\n", global.EcocPerKG)
	fmt.Printf("Min Deposit Weight: %dg\n", global.MinDepositWeight)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
