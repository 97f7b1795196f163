package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ecobottle-ledger-go/internal/database"
	"ecobottle-ledger-go/internal/formance"
	"ecobottle-ledger-go/internal/ledger"
	"ecobottle-ledger-go/internal/models"
	"ecobottle-ledger-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Records *database.Service
	Tokens  store.TokenLedger
	Ledger  *ledger.Service
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

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	records, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	tokens, err := initializeTokenLedger(ctx, cfg)
	if err != nil {
		records.Close()
		return nil, err
	}

	return &Services{
		Records: records,
		Tokens:  tokens,
		Ledger:  ledger.NewService(records, tokens),
	}, nil
}

func initializeTokenLedger(ctx context.Context, cfg *models.Config) (store.TokenLedger, error) {
	switch cfg.Tokens.Backend {
	case "", "sqlite":
		zap.L().Info("Using sqlite token ledger backend", zap.String("file", cfg.Tokens.SQLitePath))
		return database.NewTokenLedger(ctx, cfg.Tokens.SQLitePath)
	case "formance":
		zap.L().Info("Using Formance token ledger backend")
		return formance.NewService(ctx, cfg.Tokens.Formance)
	default:
		return nil, fmt.Errorf("unknown token ledger backend: %q", cfg.Tokens.Backend)
	}
}

func (cs *Services) Close() {
	if cs.Tokens != nil {
		cs.Tokens.Close()
	}
	if cs.Records != nil {
		cs.Records.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
