package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr     string
	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig

	AnalyticsConfigDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DashboardCacheTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// SyncConfig controls where snapshots come from and how often they are synced.
type SyncConfig struct {
	SnapshotDir     string
	Communities     []string
	Interval        time.Duration
	Timeout         time.Duration
	LockTTL         time.Duration
	SchedulerEnable bool
}

// RateLimitConfig bounds manual sync triggers per community. Rate is tokens
// per second.
type RateLimitConfig struct {
	Enabled          bool
	SyncTriggerRate  float64
	SyncTriggerBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "memberhud"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "memberhud"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Redis: RedisConfig{
			Addr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:          strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:                getenvInt("REDIS_DB", 0),
			DashboardCacheTTL: getenvDuration("REDIS_DASHBOARD_TTL", 5*time.Minute),
		},
		Sync: SyncConfig{
			SnapshotDir:     getenv("SNAPSHOT_DIR", "./snapshots"),
			Communities:     parseList(getenv("HUD_COMMUNITIES", "")),
			Interval:        getenvDuration("SYNC_INTERVAL", time.Hour),
			Timeout:         getenvDuration("SYNC_TIMEOUT", 2*time.Minute),
			LockTTL:         getenvDuration("SYNC_LOCK_TTL", 5*time.Minute),
			SchedulerEnable: getenvBool("SYNC_SCHEDULER_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			SyncTriggerRate:  getenvFloat("RATE_LIMIT_SYNC_TRIGGER_RATE", 1.0/60),
			SyncTriggerBurst: getenvInt("RATE_LIMIT_SYNC_TRIGGER_BURST", 3),
		},
		AnalyticsConfigDir: strings.TrimSpace(getenv("ANALYTICS_CONFIG_DIR", "")),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts Go durations ("90s", "1h") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
