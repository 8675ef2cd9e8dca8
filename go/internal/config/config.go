package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server settings, read from environment variables with
// defaults suitable for local development.
type Config struct {
	Port            string
	GracePeriod     time.Duration
	PendingCapacity int
	MaxPlayers      int
	PresetsPath     string
	SweepInterval   time.Duration
	IdleRoomTTL     time.Duration
	LogLevel        string
}

// FromEnv reads PARTY_* environment variables (with defaults).
func FromEnv() Config {
	return Config{
		Port:            getEnv("PARTY_PORT", "8080"),
		GracePeriod:     getEnvAsDuration("PARTY_GRACE_PERIOD", 30*time.Second),
		PendingCapacity: getEnvAsInt("PARTY_PENDING_CAPACITY", 1024),
		MaxPlayers:      getEnvAsInt("PARTY_MAX_PLAYERS", 16),
		PresetsPath:     getEnv("PARTY_PRESETS_PATH", ""),
		SweepInterval:   getEnvAsDuration("PARTY_SWEEP_INTERVAL", time.Minute),
		IdleRoomTTL:     getEnvAsDuration("PARTY_IDLE_ROOM_TTL", 10*time.Minute),
		LogLevel:        getEnv("PARTY_LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
