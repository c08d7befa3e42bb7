package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Bot     BotConfig
	History HistoryConfig
}

type ServerConfig struct {
	Port string
}

// StoreConfig points at the remote command store (the CRUD backend that owns
// command definitions and message persistence).
type StoreConfig struct {
	BaseURL string
	Timeout time.Duration
}

type BotConfig struct {
	RefreshInterval time.Duration
	SessionDir      string
}

type HistoryConfig struct {
	WindowSize int
}

// Load reads configuration from the environment, applying defaults for
// everything except the store base URL.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Store: StoreConfig{
			BaseURL: getEnv("COMMAND_STORE_URL", "http://127.0.0.1:8000/api"),
			Timeout: time.Duration(getEnvInt("COMMAND_STORE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Bot: BotConfig{
			RefreshInterval: time.Duration(getEnvInt("COMMAND_REFRESH_MS", 8000)) * time.Millisecond,
			SessionDir:      getEnv("SESSION_DATA_DIR", "./sessions"),
		},
		History: HistoryConfig{
			WindowSize: getEnvInt("MESSAGE_HISTORY_SIZE", 200),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
