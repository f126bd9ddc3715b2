package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes environment-driven settings for the daemon and workers.
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string

	SQLitePath   string
	RedisAddr    string // empty disables the redis snapshot-diff backend
	KafkaBrokers []string

	TopicOddsQuotes  string
	TopicAlertEvents string

	// Tracked sport keys, e.g. "soccer_epl,basketball_nba".
	SportKeys []string

	OddsSyncInterval    time.Duration
	FixtureSyncInterval time.Duration
	SnapshotInterval    time.Duration
	AlertSweepInterval  time.Duration

	// Bounded concurrency for per-sport provider calls within one sync cycle.
	SyncConcurrency int

	ProviderTimeout time.Duration

	SnapshotPath string

	HTTPPort    string
	MetricsPort string

	PushWebhookURL string

	// AI prediction reader (OpenAI-compatible endpoint); empty key disables it.
	PredictionAPIKey  string
	PredictionBaseURL string
	PredictionModel   string
}

// Load reads environment variables and applies defaults.
func Load(serviceName string) Config {
	return Config{
		Env:         getEnv("ENV", "local"),
		ServiceName: serviceName,

		SQLitePath:   getEnv("SQLITE_PATH", "data/oddsradar.db"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),

		TopicOddsQuotes:  getEnv("KAFKA_TOPIC_ODDS_QUOTES", "odds.quotes"),
		TopicAlertEvents: getEnv("KAFKA_TOPIC_ALERT_EVENTS", "alerts.events"),

		SportKeys: splitList(getEnv("SPORT_KEYS", "soccer_epl,basketball_nba,americanfootball_nfl")),

		OddsSyncInterval:    getDuration("ODDS_SYNC_INTERVAL", 5*time.Minute),
		FixtureSyncInterval: getDuration("FIXTURE_SYNC_INTERVAL", time.Hour),
		SnapshotInterval:    getDuration("SNAPSHOT_INTERVAL", 10*time.Minute),
		AlertSweepInterval:  getDuration("ALERT_SWEEP_INTERVAL", 5*time.Minute),

		SyncConcurrency: getInt("SYNC_CONCURRENCY", 3),

		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 20*time.Second),

		SnapshotPath: getEnv("SNAPSHOT_PATH", "data/odds_snapshot.json"),

		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9095"),

		PushWebhookURL: getEnv("PUSH_WEBHOOK_URL", ""),

		PredictionAPIKey:  getEnv("PREDICTION_API_KEY", ""),
		PredictionBaseURL: getEnv("PREDICTION_BASE_URL", ""),
		PredictionModel:   getEnv("PREDICTION_MODEL", ""),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
