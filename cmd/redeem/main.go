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

	userFlag := flag.String("user", "", "Owner identity of the redeeming user (required)")
	productFlag := flag.String("product", "", "Product id, max 32 characters (required)")
	amountFlag := flag.Uint64("amount", 0, "ECOC amount to redeem (required)")
	flag.Parse()

	if *userFlag == "" || *productFlag == "" || *amountFlag == 0 {
		zap.L().Fatal("Required flags: --user, --product, --amount")
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

	record, err := services.Ledger.RedeemTokens(ctx, ledger.RedeemParams{
		User:      *userFlag,
		ProductID: *productFlag,
		Amount:    *amountFlag,
	})
	if err != nil {
		zap.L().Fatal("Redemption failed", zap.Error(err))
	}

	balance, err := services.Tokens.BalanceOf(ctx, *userFlag)
	if err != nil {
		zap.L().Warn("Failed to read balance after redemption", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("TOKENS REDEEMED", common.DefaultWidth)
	fmt.Printf("User:      %s\n", record.User)
	fmt.Printf("Product:   %s\n", record.ProductID)
	fmt.Printf("Amount:    %d ECOC\n", record.Amount)
	fmt.Printf("Balance:   %d ECOC\n", balance)
	fmt.Printf("Sequence:  %d\n", record.Sequence)
	fmt.Printf("Audit Tag: %s\n", record.AuditTag)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
