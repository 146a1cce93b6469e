package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Polymarket Gamma API
	PolymarketAPIURL string

	// Scan/poll cadence
	ScanInterval time.Duration
	PollInterval time.Duration

	// SQLite database URL, e.g. "sqlite:data/signals.db"
	DatabaseURL string

	// Team alias table (JSON). Absent file -> empty alias table.
	TeamAliasesPath string

	// Win-probability model weights (YAML). Absent file -> built-in defaults.
	ModelWeightsPath string

	// Signal fanout WebSocket listen address. Empty -> fanout disabled.
	FanoutAddr string

	// Discord webhook for strong-signal alerts. Empty -> alerts disabled.
	DiscordWebhookURL string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		PolymarketAPIURL: envStr("POLYMARKET_API_URL", "https://gamma-api.polymarket.com"),

		ScanInterval: time.Duration(envInt("POLYMARKET_SCAN_INTERVAL", 300)) * time.Second,
		PollInterval: time.Duration(envInt("LIVE_MATCH_POLL_INTERVAL", 5)) * time.Second,

		DatabaseURL: envStr("DATABASE_URL", "sqlite:data/signals.db"),

		TeamAliasesPath:  envStr("TEAM_ALIASES_PATH", "data/team_aliases.json"),
		ModelWeightsPath: envStr("MODEL_WEIGHTS_PATH", ""),

		FanoutAddr: envStr("FANOUT_ADDR", ""),

		DiscordWebhookURL: envStr("DISCORD_WEBHOOK_URL", ""),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
