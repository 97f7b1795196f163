package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"ecobottle-ledger-go/internal/common"
	"ecobottle-ledger-go/internal/config"
	"ecobottle-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	containerFlag := flag.String("container", "", "Container id to collect (required)")
	collectorFlag := flag.String("collector", "", "Identity of the collecting party (required)")
	flag.Parse()

	if *containerFlag == "" || *collectorFlag == "" {
		zap.L().Fatal("Required flags: --container, --collector")
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

	record, err := services.Ledger.CollectContainer(ctx, ledger.CollectParams{
		ContainerID: *containerFlag,
		Collector:   *collectorFlag,
	})
	if err != nil {
		zap.L().Fatal("Collection failed", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("CONTAINER COLLECTED", common.DefaultWidth)
	fmt.Printf("Container: %s\n", record.ContainerID)
	fmt.Printf("Collector: %s\n", record.Collector)
	fmt.Printf("Weight:    %s\n", common.FormatWeight(record.WeightCollected))
	fmt.Printf("Verified:  %t\n", record.Verified)
	fmt.Printf("Time:      %s\n", time.Unix(record.Timestamp, 0).Format("2006-01-02 15:04:05"))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
