package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE_BACKEND", "DATABASE_URL", "LOW_ATTENDANCE_THRESHOLD",
		"LOW_ATTENDANCE_MIN_LECTURES", "HEALTH_INTERVAL", "SEED_DEMO_HISTORY"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("ожидали memory, получили %q", cfg.Backend)
	}
	if cfg.LowAttendanceThreshold != 75 || cfg.LowAttendanceMinLectures != 3 {
		t.Fatalf("неверные пороги: %v / %d", cfg.LowAttendanceThreshold, cfg.LowAttendanceMinLectures)
	}
	if cfg.HealthInterval != 30*time.Second {
		t.Fatalf("ожидали 30s, получили %v", cfg.HealthInterval)
	}
	if cfg.SeedDemoHistory {
		t.Fatal("история по умолчанию выключена")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("postgres_without_dsn", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil {
			t.Fatal("ожидали ошибку без DATABASE_URL")
		}
	})
	t.Run("unknown_backend", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "sqlite")
		if _, err := Load(); err == nil {
			t.Fatal("ожидали ошибку для неизвестного бэкенда")
		}
	})
	t.Run("threshold_out_of_range", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "")
		t.Setenv("LOW_ATTENDANCE_THRESHOLD", "150")
		if _, err := Load(); err == nil {
			t.Fatal("ожидали ошибку для порога > 100")
		}
	})
	for _, v := range []string{"0s", "-5s"} {
		t.Run("health_interval_"+v, func(t *testing.T) {
			t.Setenv("STORAGE_BACKEND", "")
			t.Setenv("LOW_ATTENDANCE_THRESHOLD", "")
			t.Setenv("HEALTH_INTERVAL", v)
			if _, err := Load(); err == nil {
				t.Fatalf("ожидали ошибку для HEALTH_INTERVAL=%s", v)
			}
		})
	}
}

func TestLoad_Redis(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "REDIS")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SEED_DEMO_HISTORY", "yes")
	t.Setenv("LOW_ATTENDANCE_THRESHOLD", "")
	t.Setenv("LOW_ATTENDANCE_MIN_LECTURES", "")
	t.Setenv("HEALTH_INTERVAL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendRedis || cfg.RedisAddr != "cache:6379" || !cfg.SeedDemoHistory {
		t.Fatalf("неожиданный конфиг: %+v", cfg)
	}
}
