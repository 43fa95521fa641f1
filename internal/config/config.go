package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Relay membership policies. "signal" adds a weighted contribution to the
// risk score; "block" rejects the request outright.
const (
	RelayPolicySignal = "signal"
	RelayPolicyBlock  = "block"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// Comma-separated ISO country codes rejected before any other check.
	BlockedCountries []string

	RateLimitWindow time.Duration
	RateLimitMax    int
	// When set, rate-limit counters live in Redis instead of process memory.
	RedisAddr string

	RelayListURL         string
	RelayRefreshInterval time.Duration
	RelayPolicy          string

	VpnLookupURL     string
	VpnLookupKey     string
	VpnLookupTimeout time.Duration

	NotableThreshold int
	BlockThreshold   int

	BehaviorLookback      time.Duration
	BehaviorMaxRequests   int
	BehaviorMaxPaths      int
	BehaviorMaxUserAgents int

	// Shoutrrr URLs notified when an attack event is recorded.
	NotifyURLs []string
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("GH_ENV", "development"),
		HTTPPort:     getEnv("GH_HTTP_PORT", "8080"),
		DatabasePath: getEnv("GH_DB_PATH", filepath.Join("data", "gatehouse.db")),

		BlockedCountries: splitList(getEnv("GH_BLOCKED_COUNTRIES", "")),

		RateLimitWindow: getEnvDuration("GH_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    getEnvInt("GH_RATE_LIMIT_MAX", 100),
		RedisAddr:       getEnv("GH_REDIS_ADDR", ""),

		RelayListURL:         getEnv("GH_RELAY_LIST_URL", "https://check.torproject.org/torbulkexitlist"),
		RelayRefreshInterval: getEnvDuration("GH_RELAY_REFRESH_INTERVAL", time.Hour),
		RelayPolicy:          getEnv("GH_RELAY_POLICY", RelayPolicySignal),

		VpnLookupURL:     getEnv("GH_VPN_LOOKUP_URL", ""),
		VpnLookupKey:     getEnv("GH_VPN_LOOKUP_KEY", ""),
		VpnLookupTimeout: getEnvDuration("GH_VPN_LOOKUP_TIMEOUT", 3*time.Second),

		NotableThreshold: getEnvInt("GH_NOTABLE_THRESHOLD", 30),
		BlockThreshold:   getEnvInt("GH_BLOCK_THRESHOLD", 80),

		BehaviorLookback:      getEnvDuration("GH_BEHAVIOR_LOOKBACK", 10*time.Minute),
		BehaviorMaxRequests:   getEnvInt("GH_BEHAVIOR_MAX_REQUESTS", 200),
		BehaviorMaxPaths:      getEnvInt("GH_BEHAVIOR_MAX_PATHS", 50),
		BehaviorMaxUserAgents: getEnvInt("GH_BEHAVIOR_MAX_USER_AGENTS", 10),

		NotifyURLs: splitList(getEnv("GH_NOTIFY_URLS", "")),
	}

	if cfg.RelayPolicy != RelayPolicySignal && cfg.RelayPolicy != RelayPolicyBlock {
		return Config{}, fmt.Errorf("invalid GH_RELAY_POLICY %q: must be %q or %q", cfg.RelayPolicy, RelayPolicySignal, RelayPolicyBlock)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
