package config

import (
	"os"
	"strconv"

	"gospike/domain/core"
	"gospike/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Analysis AnalysisConfig
	Data     DataConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection settings. URL empty means run
// persistence is disabled and analyses are served in-memory only.
type DatabaseConfig struct {
	URL string
}

// AnalysisConfig holds the default sliding-window geometry applied when a
// request leaves fields unset. All durations are milliseconds on the trial
// time axis.
type AnalysisConfig struct {
	BinSize           core.Millis
	WinSize           core.Millis
	WinStep           core.Millis
	SignificanceLevel float64
	Workers           int
}

// DataConfig holds file ingestion settings
type DataConfig struct {
	SpikeFile string
	TStart    core.Millis
	TStop     core.Millis
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Analysis: AnalysisConfig{
			BinSize:           core.Millis(getEnvFloatOrDefault("UE_BIN_SIZE_MS", 5)),
			WinSize:           core.Millis(getEnvFloatOrDefault("UE_WIN_SIZE_MS", 100)),
			WinStep:           core.Millis(getEnvFloatOrDefault("UE_WIN_STEP_MS", 10)),
			SignificanceLevel: getEnvFloatOrDefault("UE_SIGNIFICANCE", 0.05),
			Workers:           getEnvIntOrDefault("UE_WORKERS", 1),
		},
		Data: DataConfig{
			SpikeFile: getEnvOrDefault("SPIKE_FILE", ""),
			TStart:    core.Millis(getEnvFloatOrDefault("SPIKE_T_START_MS", 0)),
			TStop:     core.Millis(getEnvFloatOrDefault("SPIKE_T_STOP_MS", 0)),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Analysis.BinSize <= 0 {
		return errors.ConfigInvalid("UE_BIN_SIZE_MS must be positive")
	}
	if config.Analysis.WinSize <= 0 {
		return errors.ConfigInvalid("UE_WIN_SIZE_MS must be positive")
	}
	if config.Analysis.WinStep <= 0 {
		return errors.ConfigInvalid("UE_WIN_STEP_MS must be positive")
	}
	if s := config.Analysis.SignificanceLevel; s <= 0 || s >= 1 {
		return errors.ConfigInvalid("UE_SIGNIFICANCE must lie in (0,1)")
	}
	if config.Analysis.Workers < 1 {
		return errors.ConfigInvalid("UE_WORKERS must be at least 1")
	}
	if config.Data.SpikeFile != "" && config.Data.TStop <= config.Data.TStart {
		return errors.ConfigInvalid("SPIKE_T_STOP_MS must exceed SPIKE_T_START_MS when SPIKE_FILE is set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
