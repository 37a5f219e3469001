package stats

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nftswap"

// Metrics groups the collectors of the swap engine. Every instance owns its
// registry, so that more engines can live in the same process (ie. tests).
type Metrics struct {
	Registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	custodyGauge  prometheus.Gauge
	ledgerLatency *prometheus.HistogramVec
}

// NewMetrics returns a Metrics with all collectors registered, together with
// the default process and go runtime ones.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Number of swap state transitions by resulting status.",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_operation_failures_total",
			Help:      "Number of failed swap operations by operation and error kind.",
		}, []string{"operation", "kind"}),
		custodyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escrow_active_entries",
			Help:      "Number of assets currently held in custody.",
		}),
		ledgerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_request_duration_seconds",
			Help:      "Latency of the requests to the external ledger.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.Registry.MustRegister(
		m.transitions, m.failures, m.custodyGauge, m.ledgerLatency,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveTransition counts a swap reaching the given status.
func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// ObserveFailure counts a failed operation.
func (m *Metrics) ObserveFailure(operation, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, kind).Inc()
}

// SetCustodyEntries sets the number of active custody entries.
func (m *Metrics) SetCustodyEntries(count int) {
	if m == nil {
		return
	}
	m.custodyGauge.Set(float64(count))
}

// AddCustodyEntries moves the number of active custody entries by delta.
func (m *Metrics) AddCustodyEntries(delta int) {
	if m == nil {
		return
	}
	m.custodyGauge.Add(float64(delta))
}

// ObserveLedgerRequest records the duration of a ledger request in seconds.
func (m *Metrics) ObserveLedgerRequest(method string, seconds float64) {
	if m == nil {
		return
	}
	m.ledgerLatency.WithLabelValues(method).Observe(seconds)
}
