package app

import (
	"context"
	"net/http"
	"time"

	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/store"
)

type HTTPServer struct {
	srv *http.Server
}

// Handler — служебные ручки: /healthz пингует бэкенд хранилища, /metrics отдаёт prometheus.
func Handler(p store.Pinger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "storage not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveBackendPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func StartHTTP(ctx context.Context, addr string, p store.Pinger) *HTTPServer {
	srv := &http.Server{Addr: addr, Handler: Handler(p), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		_ = srv.ListenAndServe() // закрываем аккуратно при Shutdown
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}

func (s *HTTPServer) Addr() string { return s.srv.Addr }
