package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects how much human and advisory oversight trades get.
type Mode string

const (
	// ModeAuto trades fully autonomously.
	ModeAuto Mode = "AST"
	// ModeAutoAdvisor consults the LLM advisor before buying.
	ModeAutoAdvisor Mode = "AST+"
	// ModeSupervised asks the operator to confirm each buy.
	ModeSupervised Mode = "SST"
	// ModeSupervisedAdvisor requires both advisor approval and operator
	// confirmation.
	ModeSupervisedAdvisor Mode = "SST+"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Binance credentials
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceRootURL   string

	// Portfolio
	Universe    string // comma-separated assets, rotation order
	StableAsset string
	Allocation  string // "BTC:0.5,ETH:0.3"; empty disables rebalancing
	Mode        Mode

	// Strategy
	Interval      string
	HistoryBars   int
	CycleInterval time.Duration
	ErrorCooldown time.Duration

	// Risk limits (fractions, e.g. 0.05 = 5%)
	StopLoss      float64
	TakeProfit    float64
	RebalanceBand float64

	// Notifications
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string

	// Advisor (AST+/SST+)
	AdvisorURL    string
	AdvisorAPIKey string
	AdvisorModel  string

	// Operator confirmation (SST/SST+)
	ConfirmTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string // empty disables the read-only HTTP API
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BinanceAPIKey:    mustEnv("BINANCE_API_KEY"),
		BinanceAPISecret: mustEnv("BINANCE_API_SECRET"),
		BinanceRootURL:   getEnv("BINANCE_ROOT_URL", "https://api.binance.com"),

		Universe:    getEnv("UNIVERSE", "BTC,ETH,SOL"),
		StableAsset: getEnv("STABLE_ASSET", "USDT"),
		Allocation:  getEnv("ALLOCATION", ""),
		Mode:        Mode(getEnv("MODE", string(ModeAuto))),

		Interval:      getEnv("BAR_INTERVAL", "1h"),
		HistoryBars:   getEnvInt("HISTORY_BARS", 250),
		CycleInterval: getEnvDuration("CYCLE_INTERVAL", 60*time.Second),
		ErrorCooldown: getEnvDuration("ERROR_COOLDOWN", 300*time.Second),

		StopLoss:      getEnvFloat("STOP_LOSS", 0.05),
		TakeProfit:    getEnvFloat("TAKE_PROFIT", 0.10),
		RebalanceBand: getEnvFloat("REBALANCE_BAND", 0),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),

		AdvisorURL:    getEnv("ADVISOR_URL", "https://api.openai.com/v1/chat/completions"),
		AdvisorAPIKey: getEnv("ADVISOR_API_KEY", ""),
		AdvisorModel:  getEnv("ADVISOR_MODEL", "gpt-4o-mini"),

		ConfirmTOTPSecret: getEnv("CONFIRM_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/rotorbot.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ""),
	}
}

// ParseUniverse parses the Universe string into the ordered asset list.
func (c *Config) ParseUniverse() []string {
	parts := strings.Split(c.Universe, ",")
	assets := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		assets = append(assets, p)
	}
	return assets
}

// ParseAllocation parses the Allocation string ("BTC:0.5,ETH:0.3") into
// target fractions per asset. Returns nil when unset or empty.
func (c *Config) ParseAllocation() map[string]float64 {
	if strings.TrimSpace(c.Allocation) == "" {
		return nil
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(c.Allocation, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			log.Printf("[config] skipping invalid allocation entry: %q", part)
			continue
		}
		frac, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || frac < 0 || frac > 1 {
			log.Printf("[config] skipping invalid allocation fraction: %q", part)
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(kv[0]))] = frac
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks values that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeAutoAdvisor, ModeSupervised, ModeSupervisedAdvisor:
	default:
		return &InvalidError{Field: "MODE", Value: string(c.Mode)}
	}
	if len(c.ParseUniverse()) == 0 {
		return &InvalidError{Field: "UNIVERSE", Value: c.Universe}
	}
	if (c.Mode == ModeAutoAdvisor || c.Mode == ModeSupervisedAdvisor) && c.AdvisorAPIKey == "" {
		return &InvalidError{Field: "ADVISOR_API_KEY", Value: "(empty)"}
	}
	return nil
}

// InvalidError reports a config value that cannot be used.
type InvalidError struct {
	Field string
	Value string
}

func (e *InvalidError) Error() string {
	return "config: invalid " + e.Field + ": " + e.Value
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
