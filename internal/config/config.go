package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ecobottle-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	ecocPerKG, err := getEnvUint64("ECOC_PER_KG", 10)
	if err != nil {
		return nil, err
	}

	minDepositWeight, err := getEnvUint64("MIN_DEPOSIT_WEIGHT", 50)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "recycling.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Tokens: models.TokenLedgerConfig{
			Backend:    getEnvString("TOKEN_LEDGER_BACKEND", "sqlite"),
			SQLitePath: getEnvString("TOKEN_DB_PATH", "tokens.db"),
			Formance: models.FormanceConfig{
				StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
				ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
				ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
				LedgerName:   getEnvString("FORMANCE_LEDGER_NAME", "ecobottle-recycling"),
			},
		},
		Reward: models.RewardConfig{
			EcocPerKG:        ecocPerKG,
			MinDepositWeight: minDepositWeight,
		},
		Authority:      getEnvString("AUTHORITY_ID", "authority"),
		ContainersFile: getEnvString("CONTAINERS_FILE", "containers.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) (uint64, error) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %q (%w)", key, value, err)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
