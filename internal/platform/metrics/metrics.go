// Package metrics holds the Prometheus collectors of the contest store.
// Counters live as long as the process; gauges are refreshed from store
// state before each export.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds Prometheus counters and gauges for the contest store.
type Metrics struct {
	registry              *prometheus.Registry
	submissionsAddedTotal prometheus.Counter
	submissionsUpdated    prometheus.Counter
	updatesRejectedTotal  *prometheus.CounterVec
	storageWriteErrors    prometheus.Counter
	storageReadFallbacks  prometheus.Counter
	submissionsByStatus   *prometheus.GaugeVec
	sessionActive         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the contest store.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	submissionsAddedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contest_submissions_added_total",
		Help: "Total number of submissions added",
	})
	submissionsUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contest_submissions_updated_total",
		Help: "Total number of submission patches applied",
	})
	updatesRejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contest_updates_rejected_total",
		Help: "Total number of submission patches rejected, by reason",
	}, []string{"reason"})
	storageWriteErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contest_storage_write_errors_total",
		Help: "Total number of failed write-throughs to durable storage",
	})
	storageReadFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contest_storage_read_fallbacks_total",
		Help: "Total number of storage reads that fell back to defaults",
	})
	submissionsByStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "contest_submissions",
		Help: "Number of submissions held, by status",
	}, []string{"status"})
	sessionActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contest_session_active",
		Help: "1 if a role is selected on this device, 0 otherwise",
	})

	registry.MustRegister(
		submissionsAddedTotal,
		submissionsUpdated,
		updatesRejectedTotal,
		storageWriteErrors,
		storageReadFallbacks,
		submissionsByStatus,
		sessionActive,
	)

	return &Metrics{
		registry:              registry,
		submissionsAddedTotal: submissionsAddedTotal,
		submissionsUpdated:    submissionsUpdated,
		updatesRejectedTotal:  updatesRejectedTotal,
		storageWriteErrors:    storageWriteErrors,
		storageReadFallbacks:  storageReadFallbacks,
		submissionsByStatus:   submissionsByStatus,
		sessionActive:         sessionActive,
	}
}

// IncSubmissionsAdded increments the submissions added counter.
func (m *Metrics) IncSubmissionsAdded() {
	m.submissionsAddedTotal.Inc()
}

// IncSubmissionsUpdated increments the applied patches counter.
func (m *Metrics) IncSubmissionsUpdated() {
	m.submissionsUpdated.Inc()
}

// IncUpdatesRejected increments the rejected patches counter for reason.
func (m *Metrics) IncUpdatesRejected(reason string) {
	m.updatesRejectedTotal.WithLabelValues(reason).Inc()
}

// IncWriteErrors increments the storage write error counter.
func (m *Metrics) IncWriteErrors() {
	m.storageWriteErrors.Inc()
}

// IncReadFallbacks increments the storage read fallback counter.
func (m *Metrics) IncReadFallbacks() {
	m.storageReadFallbacks.Inc()
}

// SetSubmissionsByStatus replaces the per-status gauge values.
// Statuses missing from counts are reset to zero.
func (m *Metrics) SetSubmissionsByStatus(counts map[string]int) {
	m.submissionsByStatus.Reset()
	for status, n := range counts {
		m.submissionsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// SetSessionActive sets the session gauge.
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
		return
	}
	m.sessionActive.Set(0)
}

// SubmissionsAdded exposes the added counter, mainly for tests.
func (m *Metrics) SubmissionsAdded() prometheus.Collector { return m.submissionsAddedTotal }

// SubmissionsUpdated exposes the applied patches counter.
func (m *Metrics) SubmissionsUpdated() prometheus.Collector { return m.submissionsUpdated }

// UpdatesRejected exposes the rejected patches counter for one reason.
func (m *Metrics) UpdatesRejected(reason string) prometheus.Collector {
	return m.updatesRejectedTotal.WithLabelValues(reason)
}

// WriteErrors exposes the storage write error counter.
func (m *Metrics) WriteErrors() prometheus.Collector { return m.storageWriteErrors }

// ReadFallbacks exposes the storage read fallback counter.
func (m *Metrics) ReadFallbacks() prometheus.Collector { return m.storageReadFallbacks }

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition format,
// for pickup by the node exporter textfile collector.
// updateGauges is called first to refresh gauge values.
func (m *Metrics) WriteTextfile(path string, updateGauges func()) error {
	if updateGauges != nil {
		updateGauges()
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// WriteText writes all metrics to w in the text exposition format.
func (m *Metrics) WriteText(w io.Writer, updateGauges func()) error {
	if updateGauges != nil {
		updateGauges()
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
