package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	Environment   string
	LogLevel      slog.Level
	LogFile       string
	RedisURL      string
	DataDir       string
	TranscriptDB  string
	PlayerName    string
	PlayerKeyword string
	// Manifest is the story served by the API.
	Manifest string
	// TimeScale multiplies animation durations on the stage host. 0 is instant.
	TimeScale float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:       os.Getenv("LOG_FILE"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		TranscriptDB:  os.Getenv("TRANSCRIPT_DB"),
		PlayerName:    getEnv("PLAYER_NAME", "Player"),
		PlayerKeyword: getEnv("PLAYER_KEYWORD", "player"),
		Manifest:      getEnv("MANIFEST", "story.yaml"),
	}

	scale, err := strconv.ParseFloat(getEnv("TIME_SCALE", "1"), 64)
	if err != nil || scale < 0 {
		return nil, fmt.Errorf("invalid TIME_SCALE %q", os.Getenv("TIME_SCALE"))
	}
	cfg.TimeScale = scale
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
