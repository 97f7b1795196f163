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

	ownerFlag := flag.String("owner", "", "Owner identity of the new user (required)")
	usernameFlag := flag.String("username", "", "Display name, max 32 characters (defaults to owner)")
	flag.Parse()

	if *ownerFlag == "" {
		zap.L().Fatal("Required flag: --owner")
	}
	username := *usernameFlag
	if username == "" {
		username = *ownerFlag
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

	profile, err := services.Ledger.RegisterUser(ctx, ledger.RegisterUserParams{
		Owner:    *ownerFlag,
		Username: username,
	})
	if err != nil {
		zap.L().Fatal("Failed to register user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER REGISTERED", common.DefaultWidth)
	fmt.Printf("Owner:    %s\n", profile.Owner)
	fmt.Printf("Username: %s\n", profile.Username)
	fmt.Printf("Created:  %s\n", time.Unix(profile.CreatedAt, 0).Format("2006-01-02 15:04:05"))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
