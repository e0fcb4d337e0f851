package app

import (
	"strings"
	"time"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/utils"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSOrigins []string

	WorkerEnabled   bool
	SweepInterval   time.Duration
	SweepLimit      int
	Concurrency     int
	MaxAttempts     int
	StaleProcessing time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	corsOrigins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}

	workerEnabled := utils.GetEnvAsBool("JOB_WORKER_ENABLED", true, log)
	sweepIntervalMS := utils.GetEnvAsInt("JOB_SWEEP_INTERVAL_MS", 1000, log)
	sweepLimit := utils.GetEnvAsInt("JOB_SWEEP_LIMIT", 10, log)
	concurrency := utils.GetEnvAsInt("JOB_CONCURRENCY", 4, log)
	maxAttempts := utils.GetEnvAsInt("JOB_MAX_ATTEMPTS", 5, log)
	staleProcessingSeconds := utils.GetEnvAsInt("JOB_STALE_PROCESSING_SECONDS", 600, log)

	return Config{
		ServiceName:     utils.GetEnv("SERVICE_NAME", "fathom-backend", log),
		Environment:     utils.GetEnv("APP_ENV", "development", log),
		Version:         utils.GetEnv("APP_VERSION", "", log),
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		CORSOrigins:     corsOrigins,
		WorkerEnabled:   workerEnabled,
		SweepInterval:   time.Duration(sweepIntervalMS) * time.Millisecond,
		SweepLimit:      sweepLimit,
		Concurrency:     concurrency,
		MaxAttempts:     maxAttempts,
		StaleProcessing: time.Duration(staleProcessingSeconds) * time.Second,
	}
}
