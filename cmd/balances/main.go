package main

import (
	"context"
	"flag"
	"fmt"

	"ecobottle-ledger-go/internal/common"
	"ecobottle-ledger-go/internal/config"
	"ecobottle-ledger-go/internal/models"

	"go.uber.org/zap"
)

type reportStats struct {
	totalUsers      int
	totalContainers int
}

func printProfile(profile models.UserProfile, balance uint64) {
	fmt.Printf("\n┌─ User: %s (%s)\n", profile.Username, profile.Owner)
	common.PrintBoxSeparator(78)
	fmt.Printf("│  Balance:      %d ECOC\n", balance)
	fmt.Printf("│  Earned:       %d ECOC\n", profile.TotalEcocEarned)
	fmt.Printf("│  Spent:        %d ECOC\n", profile.TotalEcocSpent)
	fmt.Printf("│  Deposits:     %d (%s of PET)\n", profile.TotalDeposits, common.FormatWeight(profile.TotalPetWeight))
	fmt.Printf("└  Redemptions:  %d\n", profile.TotalRedemptions)
}

func printContainer(container models.Container, isLast bool) {
	status := "active"
	if !container.IsActive {
		status = "inactive"
	}
	fmt.Printf("%s %-20s %10s / %d kg  [%s]  %s\n",
		common.BoxPrefix(isLast),
		container.ContainerID,
		common.FormatWeight(container.CurrentWeight),
		container.CapacityKG,
		status,
		container.Location)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ownerFlag := flag.String("owner", "", "Filter by specific owner identity (optional)")
	flag.Parse()

	logger.Info("Starting balance report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	profiles, err := services.Ledger.ListUserProfiles(ctx)
	if err != nil {
		logger.Fatal("Failed to list user profiles", zap.Error(err))
	}

	common.PrintHeader("RECYCLING LEDGER REPORT", common.DefaultWidth)

	stats := reportStats{}
	for _, profile := range profiles {
		if *ownerFlag != "" && profile.Owner != *ownerFlag {
			continue
		}
		balance, err := services.Tokens.BalanceOf(ctx, profile.Owner)
		if err != nil {
			logger.Error("Failed to read token balance",
				zap.String("owner", profile.Owner),
				zap.Error(err))
			continue
		}
		printProfile(profile, balance)
		stats.totalUsers++
	}

	if *ownerFlag == "" {
		containers, err := services.Ledger.ListContainers(ctx)
		if err != nil {
			logger.Fatal("Failed to list containers", zap.Error(err))
		}
		if len(containers) > 0 {
			fmt.Printf("\n┌─ Containers: %d\n", len(containers))
			common.PrintBoxSeparator(78)
			for i, container := range containers {
				printContainer(container, i == len(containers)-1)
			}
			stats.totalContainers = len(containers)
		}
	}

	global, err := services.Ledger.GetGlobalState(ctx)
	if err != nil {
		logger.Fatal("Failed to read global state", zap.Error(err))
	}

	summary := fmt.Sprintf("TOTALS: %s PET collected across %d deposits (%d users, %d containers, rate %d ECOC/kg)",
		common.FormatWeight(global.TotalPetCollected),
		global.TotalDeposits,
		global.TotalUsers,
		global.TotalContainers,
		global.EcocPerKG)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users_reported", stats.totalUsers),
		zap.Int("containers_reported", stats.totalContainers))
}
