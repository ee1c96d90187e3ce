package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend        string // memory|redis|postgres
	RedisAddr      string
	RedisKeyPrefix string
	DatabaseURL    string
	Location       *time.Location
	HTTPAddr       string
	LogLevel       string
	Env            string // dev|prod
	SentryDSN      string
	Release        string

	SeedDemoHistory bool

	LowAttendanceThreshold   float64
	LowAttendanceMinLectures int
	LowAttendanceCron        string
	HealthInterval           time.Duration
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	threshold, err := strconv.ParseFloat(getenv("LOW_ATTENDANCE_THRESHOLD", "75"), 64)
	if err != nil || threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("LOW_ATTENDANCE_THRESHOLD: want number in [0,100], got %q", os.Getenv("LOW_ATTENDANCE_THRESHOLD"))
	}
	minLectures, err := strconv.Atoi(getenv("LOW_ATTENDANCE_MIN_LECTURES", "3"))
	if err != nil || minLectures < 1 {
		return nil, fmt.Errorf("LOW_ATTENDANCE_MIN_LECTURES: want positive int, got %q", os.Getenv("LOW_ATTENDANCE_MIN_LECTURES"))
	}
	health, err := time.ParseDuration(getenv("HEALTH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("HEALTH_INTERVAL: %w", err)
	}
	if health <= 0 {
		return nil, fmt.Errorf("HEALTH_INTERVAL: want positive duration, got %s", health)
	}

	cfg := &Config{
		Backend:                  strings.ToLower(getenv("STORAGE_BACKEND", BackendMemory)),
		RedisAddr:                getenv("REDIS_ADDR", "localhost:6379"),
		RedisKeyPrefix:           getenv("REDIS_KEY_PREFIX", "attendance:"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		Location:                 loc,
		HTTPAddr:                 getenv("HTTP_ADDR", ":8080"),
		LogLevel:                 getenv("LOG_LEVEL", "info"),
		Env:                      getenv("ENV", "dev"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Release:                  getenv("RELEASE", "dev"),
		SeedDemoHistory:          parseBool(os.Getenv("SEED_DEMO_HISTORY")),
		LowAttendanceThreshold:   threshold,
		LowAttendanceMinLectures: minLectures,
		LowAttendanceCron:        getenv("LOW_ATTENDANCE_CRON", "0 18 * * *"),
		HealthInterval:           health,
	}

	switch cfg.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORAGE_BACKEND=%s", cfg.Backend)
		}
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
