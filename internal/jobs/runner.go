package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/observability"
)

type Job func(ctx context.Context) error

// Runner запускает фоновые задачи до отмены ctx: по интервалу (Every)
// или по cron-выражению (Schedule).
type Runner struct {
	ctx  context.Context
	cron *cron.Cron
	log  *zap.Logger
	once sync.Once
}

func New(ctx context.Context, loc *time.Location, log *zap.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, cron: cron.New(cron.WithLocation(loc)), log: log}
}

// Every запускает fn раз в interval. Неположительный интервал не запускает задачу.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	if interval <= 0 {
		r.log.Error("неположительный интервал задачи", zap.String("job", name), zap.Duration("interval", interval))
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Schedule регистрирует задачу по cron-выражению (5 полей или @daily/@every).
// Планировщик стартует при первой регистрации и останавливается вместе с ctx.
func (r *Runner) Schedule(spec, name string, fn Job) error {
	if _, err := r.cron.AddFunc(spec, func() { r.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	r.once.Do(func() {
		r.cron.Start()
		go func() {
			<-r.ctx.Done()
			<-r.cron.Stop().Done()
		}()
	})
	r.log.Info("задача запланирована", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic in job %s: %v", name, p)
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureOp(name, err)
			r.log.Error("задача упала", zap.String("job", name), zap.Error(err))
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		observability.CaptureOp(name, err)
		r.log.Warn("ошибка задачи", zap.String("job", name), zap.Error(err))
		return
	}
	jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
}
