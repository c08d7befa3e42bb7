package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Bot.RefreshInterval != 8*time.Second {
		t.Fatalf("expected default refresh interval 8s, got %s", cfg.Bot.RefreshInterval)
	}
	if cfg.History.WindowSize != 200 {
		t.Fatalf("expected default history window 200, got %d", cfg.History.WindowSize)
	}
	if cfg.Store.BaseURL == "" {
		t.Fatalf("expected a default store base URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("COMMAND_STORE_URL", "http://store.internal/api")
	t.Setenv("COMMAND_REFRESH_MS", "2500")
	t.Setenv("MESSAGE_HISTORY_SIZE", "50")

	cfg := Load()

	if cfg.Server.Port != "3001" {
		t.Fatalf("expected port override, got %q", cfg.Server.Port)
	}
	if cfg.Store.BaseURL != "http://store.internal/api" {
		t.Fatalf("expected store URL override, got %q", cfg.Store.BaseURL)
	}
	if cfg.Bot.RefreshInterval != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s refresh interval, got %s", cfg.Bot.RefreshInterval)
	}
	if cfg.History.WindowSize != 50 {
		t.Fatalf("expected history window 50, got %d", cfg.History.WindowSize)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("COMMAND_REFRESH_MS", "not-a-number")
	t.Setenv("MESSAGE_HISTORY_SIZE", "-5")

	cfg := Load()

	if cfg.Bot.RefreshInterval != 8*time.Second {
		t.Fatalf("expected fallback refresh interval, got %s", cfg.Bot.RefreshInterval)
	}
	if cfg.History.WindowSize != 200 {
		t.Fatalf("expected fallback history window, got %d", cfg.History.WindowSize)
	}
}
