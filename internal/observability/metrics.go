package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursefront-backend/internal/platform/envutil"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	reorders          *CounterVec
	reorderDuration   *HistogramVec
	migrationLessons  *CounterVec
	migrationFiles    *CounterVec
	migrationDuration *HistogramVec
	orderingViolation *CounterVec
	lessonEvents      *CounterVec

	postgresUp   *Gauge
	postgresPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when metrics are disabled.
// All methods are safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cf_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cf_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("cf_api_inflight_requests", "In-flight API requests."),

		reorders: NewCounterVec("cf_lesson_reorders_total", "Lesson reorder requests by outcome.", []string{"outcome"}),
		reorderDuration: NewHistogramVec(
			"cf_lesson_reorder_duration_seconds",
			"End-to-end reorder latency including audio migration.",
			[]string{"outcome"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		migrationLessons:  NewCounterVec("cf_audio_migration_lessons_total", "Per-lesson audio migration results by status.", []string{"status"}),
		migrationFiles:    NewCounterVec("cf_audio_migration_files_total", "Audio files handled during migration.", []string{"result"}),
		migrationDuration: NewHistogramVec("cf_audio_migration_duration_seconds", "Audio migration latency per batch.", nil, []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}),
		orderingViolation: NewCounterVec("cf_lesson_ordering_violations_total", "Density check failures by operation.", []string{"op"}),
		lessonEvents:      NewCounterVec("cf_lesson_events_total", "Lesson order change events by publish status.", []string{"status"}),

		postgresUp:   NewGauge("cf_postgres_up", "Postgres reachability (1 up, 0 down)."),
		postgresPing: NewGauge("cf_postgres_ping_seconds", "Last Postgres ping latency."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.reorders, m.reorderDuration,
		m.migrationLessons, m.migrationFiles, m.migrationDuration,
		m.orderingViolation, m.lessonEvents,
		m.postgresUp, m.postgresPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveReorder records one reorder request. outcome is "moved", "noop",
// "rejected" or "failed".
func (m *Metrics) ObserveReorder(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.reorders.Inc(outcome)
	m.reorderDuration.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) ObserveAudioMigration(statuses []string, copied, vanished int, dur time.Duration) {
	if m == nil {
		return
	}
	for _, s := range statuses {
		m.migrationLessons.Inc(s)
	}
	if copied > 0 {
		m.migrationFiles.Add(float64(copied), "copied")
	}
	if vanished > 0 {
		m.migrationFiles.Add(float64(vanished), "vanished")
	}
	m.migrationDuration.Observe(dur.Seconds())
}

func (m *Metrics) IncOrderingViolation(op string) {
	if m == nil {
		return
	}
	m.orderingViolation.Inc(op)
}

func (m *Metrics) IncLessonEvent(status string) {
	if m == nil {
		return
	}
	m.lessonEvents.Inc(status)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 15*time.Second)
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					m.postgresUp.Set(0)
					continue
				}
				start := time.Now()
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err = sqlDB.PingContext(pingCtx)
				cancel()
				if err != nil {
					m.postgresUp.Set(0)
					if log != nil {
						log.Warn("metrics: postgres ping failed", "error", err)
					}
					continue
				}
				m.postgresUp.Set(1)
				m.postgresPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
