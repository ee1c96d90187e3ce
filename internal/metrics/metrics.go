package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LecturesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance", Name: "lectures_submitted_total", Help: "Submitted lecture reports",
	})
	RecordsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance", Name: "records_written_total", Help: "Attendance records appended",
	})
	RosterStudents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "roster_students_total", Help: "Roster import outcomes per entry",
	}, []string{"outcome"})
	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance", Name: "notifications_created_total", Help: "Low attendance notifications",
	})
	PersistenceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "persistence_errors_total", Help: "Snapshot load/save failures",
	}, []string{"op"})
	SnapshotSave = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "snapshot_save_seconds", Help: "Snapshot save latency",
		Buckets: prometheus.DefBuckets,
	})
	BackendPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "backend_ping_seconds", Help: "Storage backend ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(LecturesSubmitted, RecordsWritten, RosterStudents,
		NotificationsCreated, PersistenceErrors, SnapshotSave, BackendPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveSnapshotSave(d time.Duration) { SnapshotSave.Observe(d.Seconds()) }

func ObserveBackendPing(d time.Duration) { BackendPing.Observe(d.Seconds()) }
