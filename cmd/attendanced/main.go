package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/app"
	"github.com/Spok95/attendance-tracker/internal/config"
	"github.com/Spok95/attendance-tracker/internal/db"
	"github.com/Spok95/attendance-tracker/internal/jobs"
	"github.com/Spok95/attendance-tracker/internal/logging"
	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/notify"
	"github.com/Spok95/attendance-tracker/internal/observability"
	"github.com/Spok95/attendance-tracker/internal/store"
)

const demoHistoryDays = 10

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, lg)
	if err != nil {
		lg.Base.Fatal("storage backend", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer closeBackend()

	seed := store.SeedFunc(store.DemoSeed)
	if cfg.SeedDemoHistory {
		seed = store.WithDemoHistory(store.DemoSeed, demoHistoryDays, models.DateOf(time.Now().In(cfg.Location)))
	}
	st := store.New(backend, store.WithSeed(seed), store.WithLogger(lg.Component("store")))
	if err := st.Init(ctx); err != nil {
		observability.CaptureOp("store_init", err)
		lg.Base.Fatal("store init", zap.Error(err))
	}

	det := notify.NewDetector(st,
		notify.WithThreshold(cfg.LowAttendanceThreshold),
		notify.WithMinLectures(cfg.LowAttendanceMinLectures),
		notify.WithLocation(cfg.Location),
		notify.WithLogger(lg.Component("notify")),
	)
	svc := app.NewService(st, lg.Component("app"), app.WithDetector(det))

	runner := jobs.New(ctx, cfg.Location, lg.Component("jobs"))
	if err := runner.Schedule(cfg.LowAttendanceCron, "low_attendance_scan", func(ctx context.Context) error {
		_, err := svc.ScanLowAttendance(ctx)
		return err
	}); err != nil {
		lg.Base.Fatal("schedule low attendance scan", zap.Error(err))
	}
	runner.Every(cfg.HealthInterval, "backend_ping", func(ctx context.Context) error {
		t0 := time.Now()
		if err := st.Ping(ctx); err != nil {
			return err
		}
		metrics.ObserveBackendPing(time.Since(t0))
		return nil
	})

	srv := app.StartHTTP(ctx, cfg.HTTPAddr, st)
	lg.Base.Info("attendance core started",
		zap.String("backend", cfg.Backend),
		zap.String("http", srv.Addr()),
		zap.Int("courses", len(svc.Courses())))

	<-ctx.Done()
	lg.Base.Info("shutting down")
}

// openBackend выбирает хранилище снимка по STORAGE_BACKEND.
func openBackend(ctx context.Context, cfg *config.Config, lg *logging.Log) (store.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rb := store.NewRedisBackend(store.NewRedisClient(cfg.RedisAddr), cfg.RedisKeyPrefix)
		if err := rb.Ping(ctx); err != nil {
			_ = rb.Close()
			return nil, nil, err
		}
		lg.Base.Info("redis backend", zap.String("addr", cfg.RedisAddr))
		return rb, func() { _ = rb.Close() }, nil

	case config.BackendPostgres:
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, nil, err
		}
		lg.Base.Info("postgres backend")
		return db.NewPostgresBackend(database), closeDB(database), nil

	default:
		return store.NewMemoryBackend(), func() {}, nil
	}
}

func closeDB(database *sql.DB) func() {
	return func() { _ = database.Close() }
}
