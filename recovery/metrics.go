package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "synology_recovery"

// Metrics describes one run. It is registered on its own registry so it can be
// written out for the node_exporter textfile collector when the run ends.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions  prometheus.Gauge
	luns            prometheus.Gauge
	snapshots       *prometheus.GaugeVec
	catalogFailures prometheus.Counter
	reverts         *prometheus.CounterVec
	revertSeconds   prometheus.Histogram
	outcome         *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "iSCSI sessions connected to the appliance when the run started.",
		}),
		luns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "luns",
			Help:      "Revertible LUNs found on the appliance.",
		}),
		snapshots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "snapshots",
			Help:      "Snapshots available per LUN.",
		}, []string{"lun"}),
		catalogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_list_failures_total",
			Help:      "LUNs whose snapshots could not be listed.",
		}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reverts_total",
			Help:      "Attempted LUN reversions by result.",
		}, []string{"result"}),
		revertSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "revert_duration_seconds",
			Help:      "Time taken by each revert call.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "outcome",
			Help:      "Set to 1 for the state the run ended in.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	m.registry.MustRegister(
		m.activeSessions, m.luns, m.snapshots, m.catalogFailures,
		m.reverts, m.revertSeconds, m.outcome, m.lastRun,
	)
	return m
}

// Registry exposes the run's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the metrics to path in text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) observeLUNs(n int) {
	if m == nil {
		return
	}
	m.luns.Set(float64(n))
}

func (m *Metrics) observeCatalog(c *Catalog, failures []LUNFailure) {
	if m == nil {
		return
	}
	for _, e := range c.Entries() {
		m.snapshots.WithLabelValues(e.LUNName).Set(float64(len(e.Snapshots)))
	}
	m.catalogFailures.Add(float64(len(failures)))
}

func (m *Metrics) observeRevert(o ItemOutcome) {
	if m == nil {
		return
	}
	result := "success"
	if !o.Succeeded() {
		result = "failure"
	}
	m.reverts.WithLabelValues(result).Inc()
	m.revertSeconds.Observe(o.Duration.Seconds())
}

func (m *Metrics) observeOutcome(o Outcome, finishedUnix float64) {
	if m == nil {
		return
	}
	m.outcome.WithLabelValues(o.String()).Set(1)
	m.lastRun.Set(finishedUnix)
}
