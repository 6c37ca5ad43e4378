package app

import (
	"time"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/utils"
)

type Config struct {
	ListenAddr              string
	RedisAddr               string
	RedisChannelPrefix      string
	WorkflowConfigPath      string
	DefaultMechanicCapacity int
	DueSoonHorizon          time.Duration
	BottleneckThreshold     int
}

func LoadConfig(log *logger.Logger) Config {
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	redisChannelPrefix := utils.GetEnv("REDIS_CHANNEL_PREFIX", "jobcards", log)
	workflowConfigPath := utils.GetEnv("WORKFLOW_CONFIG_PATH", "", log)
	defaultCapacity := utils.GetEnvAsInt("DEFAULT_MECHANIC_CAPACITY", 3, log)
	dueSoonHours := utils.GetEnvAsInt("DUE_SOON_HORIZON_HOURS", 72, log)
	bottleneckThreshold := utils.GetEnvAsInt("BOTTLENECK_THRESHOLD_PCT", 80, log)
	return Config{
		ListenAddr:              listenAddr,
		RedisAddr:               redisAddr,
		RedisChannelPrefix:      redisChannelPrefix,
		WorkflowConfigPath:      workflowConfigPath,
		DefaultMechanicCapacity: defaultCapacity,
		DueSoonHorizon:          time.Duration(dueSoonHours) * time.Hour,
		BottleneckThreshold:     bottleneckThreshold,
	}
}
