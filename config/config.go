package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"livebid/payments/connect"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Auction configuration
	AllowedDurations []int // seconds
	SweepInterval    time.Duration

	// Presence configuration
	PresenceTTL          time.Duration
	PresenceReapInterval time.Duration

	// Chat configuration
	ChatHistoryLimit int

	// Rate limiting
	BidRateLimit  int
	BidRateWindow time.Duration

	// Payout provider
	Payout connect.Config

	// Monitoring
	EnableMetrics   bool
	CollectInterval time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Auction
		AllowedDurations: getEnvAsIntSlice("AUCTION_DURATIONS", "30,60,120"),
		SweepInterval:    getEnvAsDuration("AUCTION_SWEEP_INTERVAL", "2s"),

		// Presence
		PresenceTTL:          getEnvAsDuration("PRESENCE_TTL", "45s"),
		PresenceReapInterval: getEnvAsDuration("PRESENCE_REAP_INTERVAL", "15s"),

		// Chat
		ChatHistoryLimit: getEnvAsInt("CHAT_HISTORY_LIMIT", 50),

		// Rate limiting
		BidRateLimit:  getEnvAsInt("BID_RATE_LIMIT", 10),
		BidRateWindow: getEnvAsDuration("BID_RATE_WINDOW", "10s"),

		// Payout provider
		Payout: connect.Config{
			BaseURL:       getEnv("PAYOUT_BASE_URL", ""),
			PartnerID:     getEnv("PAYOUT_PARTNER_ID", ""),
			ClientID:      getEnv("PAYOUT_CLIENT_ID", ""),
			ClientKey:     getEnv("PAYOUT_CLIENT_KEY", ""),
			HMACKey:       getEnv("PAYOUT_HMAC_KEY", ""),
			WebhookSecret: getEnv("PAYOUT_WEBHOOK_SECRET", ""),
			Currency:      getEnv("PAYOUT_CURRENCY", "USD"),

			PNSubKey:    getEnv("PAYOUT_PN_SUBKEY", ""),
			PNSubSecret: getEnv("PAYOUT_PN_SUBSECRET", ""),
			PNChannel:   getEnv("PAYOUT_PN_CHANNEL", "payout-settlements"),
		},

		// Monitoring
		EnableMetrics:   getEnvAsBool("ENABLE_METRICS", true),
		CollectInterval: getEnvAsDuration("METRICS_COLLECT_INTERVAL", "30s"),
	}
}

// DurationAllowed reports whether an auction length is one of the configured
// options.
func (c *Config) DurationAllowed(sec int) bool {
	for _, d := range c.AllowedDurations {
		if d == sec {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsIntSlice(key string, defaultValue string) []int {
	valueStr := getEnv(key, defaultValue)
	parts := strings.Split(valueStr, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && v > 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 && valueStr != defaultValue {
		for _, p := range strings.Split(defaultValue, ",") {
			if v, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && v > 0 {
				out = append(out, v)
			}
		}
	}
	return out
}
