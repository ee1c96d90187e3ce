package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("условие не выполнилось вовремя")
}

func TestEvery_RunsAndCountsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, nil, nil)

	var n atomic.Int32
	r.Every(10*time.Millisecond, "test_every", func(context.Context) error {
		if n.Add(1)%2 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 4 })
	if got := testutil.ToFloat64(jobErrors.WithLabelValues("test_every")); got < 1 {
		t.Fatalf("ожидали учтённые ошибки, получили %v", got)
	}
}

func TestEvery_SurvivesPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, nil, nil)

	var n atomic.Int32
	r.Every(10*time.Millisecond, "test_panic", func(context.Context) error {
		n.Add(1)
		panic("oops")
	})
	waitFor(t, 2*time.Second, func() bool { return n.Load() >= 2 })
}

func TestEvery_NonPositiveIntervalIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, nil, nil)
	var n atomic.Int32
	r.Every(0, "test_zero", func(context.Context) error {
		n.Add(1)
		return nil
	})
	r.Every(-time.Second, "test_negative", func(context.Context) error {
		n.Add(1)
		return nil
	})
	time.Sleep(30 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatal("задача с неположительным интервалом не должна запускаться")
	}
}

func TestEvery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil, nil)
	var n atomic.Int32
	r.Every(5*time.Millisecond, "test_cancel", func(context.Context) error {
		n.Add(1)
		return nil
	})
	waitFor(t, time.Second, func() bool { return n.Load() >= 1 })
	cancel()
	time.Sleep(20 * time.Millisecond)
	before := n.Load()
	time.Sleep(50 * time.Millisecond)
	if n.Load() != before {
		t.Fatal("задача продолжает работать после отмены")
	}
}

func TestSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, time.UTC, nil)

	if err := r.Schedule("not a cron", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatal("ожидали ошибку разбора выражения")
	}

	var n atomic.Int32
	if err := r.Schedule("@every 1s", "test_cron", func(context.Context) error {
		n.Add(1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return n.Load() >= 1 })
	waitFor(t, time.Second, func() bool { return testutil.ToFloat64(jobRuns.WithLabelValues("test_cron")) >= 1 })
	if got := testutil.ToFloat64(jobLastSuccess.WithLabelValues("test_cron")); got == 0 {
		t.Fatal("ожидали отметку последнего успешного запуска")
	}
}
