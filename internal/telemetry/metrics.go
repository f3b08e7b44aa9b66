// Package telemetry exports pipeline and script-stage metrics to Prometheus,
// either scraped from an HTTP endpoint or pushed to a Pushgateway at job end.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/wdm0006/jsjanitor/pkg/janitor"
	"github.com/wdm0006/jsjanitor/pkg/transform/script"
)

const (
	StatusOK          = "ok"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Metrics owns a private registry so tests and concurrent jobs never collide
// on the global one.
type Metrics struct {
	reg *prometheus.Registry

	rows     *prometheus.CounterVec   // jsjanitor_script_rows_total
	duration *prometheus.HistogramVec // jsjanitor_script_eval_seconds
	chunks   prometheus.Counter       // jsjanitor_chunks_total
	written  prometheus.Counter       // jsjanitor_rows_total
}

func New() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jsjanitor_script_rows_total",
			Help: "Rows evaluated by script stages, partitioned by stage and status.",
		}, []string{"stage", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jsjanitor_script_eval_seconds",
			Help:    "Per-row script evaluation time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jsjanitor_chunks_total",
			Help: "Frames that passed through the pipeline.",
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jsjanitor_rows_total",
			Help: "Rows that passed through the pipeline.",
		}),
	}
	for _, c := range []prometheus.Collector{m.rows, m.duration, m.chunks, m.written} {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("telemetry: register: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRow records one script evaluation.
func (m *Metrics) ObserveRow(stage string, elapsed time.Duration, err error) {
	m.rows.WithLabelValues(stage, status(err)).Inc()
	m.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveChunk counts a transformed frame; it fits janitor.ChunkObserver.
func (m *Metrics) ObserveChunk(f *janitor.Frame) {
	m.chunks.Inc()
	m.written.Add(float64(f.Rows()))
}

func status(err error) string {
	if err == nil {
		return StatusOK
	}
	var rerr *script.RuntimeError
	if errors.As(err, &rerr) && rerr.Interrupted() {
		return StatusInterrupted
	}
	return StatusFailed
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Push sends the registry to a Pushgateway under the given job and run id.
func (m *Metrics) Push(gatewayURL, job, runID string) error {
	if gatewayURL == "" {
		return fmt.Errorf("telemetry: gateway URL is required")
	}
	p := push.New(gatewayURL, job).Gatherer(m.reg)
	if runID != "" {
		p = p.Grouping("run", runID)
	}
	return p.Push()
}
