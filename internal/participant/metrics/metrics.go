package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters the participant store maintains.
type Metrics struct {
	Loads            prometheus.Counter
	MutationsApplied *prometheus.CounterVec
	RepositoryErrors prometheus.Counter
	CacheReplaced    prometheus.Counter
}

// New creates and registers all participant store metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer; tests pass their own
// registry so repeated suite setups do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Loads: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialdesk_store_loads_total",
			Help: "Total number of full list+metrics reloads performed by the store.",
		}),
		MutationsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trialdesk_store_mutations_applied_total",
			Help: "Total number of confirmed mutations applied to the local cache.",
		}, []string{"operation"}),
		RepositoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialdesk_store_repository_errors_total",
			Help: "Total number of repository calls that failed.",
		}),
		CacheReplaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialdesk_store_cache_replacements_total",
			Help: "Total number of times the cache was atomically replaced by a reload.",
		}),
	}
}

// MutationApplied records a confirmed create/update/delete against the cache.
func (m *Metrics) MutationApplied(operation string) {
	if m == nil {
		return
	}
	m.MutationsApplied.WithLabelValues(operation).Inc()
}

// LoadPerformed records a completed full reload.
func (m *Metrics) LoadPerformed() {
	if m == nil {
		return
	}
	m.Loads.Inc()
	m.CacheReplaced.Inc()
}

// RepositoryError records a failed repository call.
func (m *Metrics) RepositoryError() {
	if m == nil {
		return
	}
	m.RepositoryErrors.Inc()
}
