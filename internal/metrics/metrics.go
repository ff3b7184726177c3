// Package metrics holds the Prometheus instruments of the ingestion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

// Metrics holds all pipeline instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	FetchTotal       *prometheus.CounterVec // labels: source, outcome
	RecordsWritten   *prometheus.CounterVec // labels: target
	ItemsSkipped     *prometheus.CounterVec // labels: job, reason
	TicksLoaded      prometheus.Counter
	TicksRejected    prometheus.Counter
	RefreshDur       *prometheus.HistogramVec // labels: view
	RefreshTotal     *prometheus.CounterVec   // labels: view, outcome
	JobDur           *prometheus.HistogramVec // labels: job
	LastJobSuccessTS *prometheus.GaugeVec     // labels: job
}

// NewMetrics builds the instruments and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpipe_fetch_total",
			Help: "Upstream fetches by source and outcome",
		}, []string{"source", "outcome"}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpipe_records_written_total",
			Help: "Records persisted by target store",
		}, []string{"target"}),
		ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpipe_items_skipped_total",
			Help: "Items skipped by job and reason",
		}, []string{"job", "reason"}),
		TicksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpipe_ticks_loaded_total",
			Help: "Raw ticks swapped into the live table",
		}),
		TicksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpipe_ticks_rejected_total",
			Help: "CSV rows rejected during tick loads",
		}),
		RefreshDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpipe_rollup_refresh_duration_seconds",
			Help:    "Continuous aggregate refresh latency",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"view"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpipe_rollup_refresh_total",
			Help: "Continuous aggregate refreshes by view and outcome",
		}, []string{"view", "outcome"}),
		JobDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpipe_job_duration_seconds",
			Help:    "Batch job wall time",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 10800},
		}, []string{"job"}),
		LastJobSuccessTS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockpipe_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job",
		}, []string{"job"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.FetchTotal,
			m.RecordsWritten,
			m.ItemsSkipped,
			m.TicksLoaded,
			m.TicksRejected,
			m.RefreshDur,
			m.RefreshTotal,
			m.JobDur,
			m.LastJobSuccessTS,
		)
	}
	return m
}

func (m *Metrics) Fetch(source, outcome string) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Written(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsWritten.WithLabelValues(target).Add(float64(n))
}

func (m *Metrics) Skipped(job, reason string) {
	if m == nil {
		return
	}
	m.ItemsSkipped.WithLabelValues(job, reason).Inc()
}

func (m *Metrics) Ticks(loaded, rejected int64) {
	if m == nil {
		return
	}
	if loaded > 0 {
		m.TicksLoaded.Add(float64(loaded))
	}
	if rejected > 0 {
		m.TicksRejected.Add(float64(rejected))
	}
}

func (m *Metrics) Refresh(view string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RefreshDur.WithLabelValues(view).Observe(elapsed.Seconds())
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.RefreshTotal.WithLabelValues(view, outcome).Inc()
}

// Job records a finished batch job.
func (m *Metrics) Job(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.JobDur.WithLabelValues(job).Observe(elapsed.Seconds())
	if err == nil {
		m.LastJobSuccessTS.WithLabelValues(job).SetToCurrentTime()
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
