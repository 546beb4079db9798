// Package metrics exposes Prometheus instrumentation for the sync core and
// the OTP relay. All recorder methods are nil-safe so components can run
// uninstrumented in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync cycle outcomes.
const (
	OutcomeSignedOut = "signed_out"
	OutcomeExpired   = "expired"
	OutcomeOK        = "ok"
	OutcomeDegraded  = "degraded"
)

// NewRegistry builds the process registry with the standard runtime
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// SyncMetrics counts what the current-user synchronizer does.
type SyncMetrics struct {
	cycles        *prometheus.CounterVec
	dedupAttaches prometheus.Counter
	staleDiscards prometheus.Counter
	signOuts      prometheus.Counter
}

// NewSyncMetrics registers the synchronizer collectors.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)

	return &SyncMetrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "critiqit_sync_cycles_total",
			Help: "Completed sync cycles by outcome.",
		}, []string{"outcome"}),
		dedupAttaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "critiqit_sync_dedup_attaches_total",
			Help: "Sync requests that attached to an in-flight cycle instead of starting one.",
		}),
		staleDiscards: factory.NewCounter(prometheus.CounterOpts{
			Name: "critiqit_sync_stale_discards_total",
			Help: "Cycle results discarded because a sign-out or close superseded them.",
		}),
		signOuts: factory.NewCounter(prometheus.CounterOpts{
			Name: "critiqit_sync_immediate_signouts_total",
			Help: "Sign-out events applied synchronously without a network round trip.",
		}),
	}
}

// CycleFinished records a completed cycle.
func (m *SyncMetrics) CycleFinished(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

// DedupAttach records a request sharing an in-flight cycle.
func (m *SyncMetrics) DedupAttach() {
	if m == nil {
		return
	}
	m.dedupAttaches.Inc()
}

// StaleDiscard records a dropped late result.
func (m *SyncMetrics) StaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

// ImmediateSignOut records a synchronous sign-out.
func (m *SyncMetrics) ImmediateSignOut() {
	if m == nil {
		return
	}
	m.signOuts.Inc()
}

// RelayMetrics counts OTP relay requests by response status.
type RelayMetrics struct {
	requests *prometheus.CounterVec
}

// NewRelayMetrics registers the relay collectors.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	return &RelayMetrics{
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "critiqit_otp_relay_requests_total",
			Help: "OTP relay requests by HTTP status.",
		}, []string{"status"}),
	}
}

// Request records one relay request.
func (m *RelayMetrics) Request(status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(status).Inc()
}
