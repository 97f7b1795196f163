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

	userFlag := flag.String("user", "", "Owner identity of the depositing user (required)")
	containerFlag := flag.String("container", "", "Container id (required)")
	gramsFlag := flag.Uint64("grams", 0, "Deposit weight in grams (required)")
	flag.Parse()

	if *userFlag == "" || *containerFlag == "" || *gramsFlag == 0 {
		zap.L().Fatal("Required flags: --user, --container, --grams")
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

	record, err := services.Ledger.ProcessDeposit(ctx, ledger.DepositParams{
		User:        *userFlag,
		ContainerID: *containerFlag,
		WeightGrams: *gramsFlag,
	})
	if err != nil {
		zap.L().Fatal("Deposit failed", zap.Error(err))
	}

	balance, err := services.Tokens.BalanceOf(ctx, *userFlag)
	if err != nil {
		zap.L().Warn("Failed to read balance after deposit", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("DEPOSIT PROCESSED", common.DefaultWidth)
	fmt.Printf("User:      %s\n", record.User)
	fmt.Printf("Container: %s\n", record.ContainerID)
	fmt.Printf("Weight:    %s\n", common.FormatWeight(record.WeightGrams))
	fmt.Printf("Reward:    %d ECOC\n", record.EcocReward)
	fmt.Printf("Balance:   %d ECOC\n", balance)
	fmt.Printf("Sequence:  %d\n", record.Sequence)
	fmt.Printf("Audit Tag: %s\n", record.AuditTag)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
