package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/pump-alarm-gateway/internal/logger"
)

// Metrics bundles the gateway instrumentation. A nil *Metrics is valid and
// records nothing, so tests and tools can run without a registry.
type Metrics struct {
	samplesPublished      prometheus.Counter
	channelReadFailures   *prometheus.CounterVec
	degradedPoints        prometheus.Gauge
	decisionCycles        prometheus.Counter
	registerWriteFailures prometheus.Counter
	staleSnapshots        prometheus.Counter
	overallLevel          prometheus.Gauge
}

// NewMetrics creates and registers the gateway metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in the binaries.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samplesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_samples_published_total",
			Help: "Snapshots published to the shared state channel.",
		}),
		channelReadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pump_channel_read_failures_total",
			Help: "Failed channel reads by monitored point.",
		}, []string{"point"}),
		degradedPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pump_degraded_points",
			Help: "Points currently coasting on retained readings.",
		}),
		decisionCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_decision_cycles_total",
			Help: "Completed alarm decision evaluations.",
		}),
		registerWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_register_write_failures_total",
			Help: "Failed register writes to the RTU.",
		}),
		staleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_stale_snapshots_total",
			Help: "Decision cycles skipped because the snapshot was stale.",
		}),
		overallLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pump_overall_alarm_level",
			Help: "Last computed overall alarm severity (0-3).",
		}),
	}

	reg.MustRegister(
		m.samplesPublished,
		m.channelReadFailures,
		m.degradedPoints,
		m.decisionCycles,
		m.registerWriteFailures,
		m.staleSnapshots,
		m.overallLevel,
	)

	return m
}

// CountSamplePublished records one published snapshot.
func (m *Metrics) CountSamplePublished() {
	if m != nil {
		m.samplesPublished.Inc()
	}
}

// CountReadFailure records a failed read for the point name.
func (m *Metrics) CountReadFailure(point string) {
	if m != nil {
		m.channelReadFailures.WithLabelValues(point).Inc()
	}
}

// SetDegradedPoints records how many points currently run on retained data.
func (m *Metrics) SetDegradedPoints(count int) {
	if m != nil {
		m.degradedPoints.Set(float64(count))
	}
}

// CountDecisionCycle records one completed decision evaluation.
func (m *Metrics) CountDecisionCycle() {
	if m != nil {
		m.decisionCycles.Inc()
	}
}

// CountWriteFailures records failed register writes.
func (m *Metrics) CountWriteFailures(count int) {
	if m != nil && count > 0 {
		m.registerWriteFailures.Add(float64(count))
	}
}

// CountStaleSnapshot records a decision cycle skipped on a stale artifact.
func (m *Metrics) CountStaleSnapshot() {
	if m != nil {
		m.staleSnapshots.Inc()
	}
}

// SetOverallLevel records the last computed overall severity.
func (m *Metrics) SetOverallLevel(level int) {
	if m != nil {
		m.overallLevel.Set(float64(level))
	}
}

// Serve exposes /metrics on the given address until the context is
// canceled. An empty address disables the listener.
func Serve(ctx context.Context, address string) {
	if address == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics listener failed", "address", address, "error", err)
		}
	}()
}
