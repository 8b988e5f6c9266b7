package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the cache layer. A nil
// *Metrics records nothing.
type Metrics struct {
	lookups     *prometheus.CounterVec
	evictions   prometheus.Counter
	invocations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cachekit_lookups_total",
			Help: "Total cache lookups by store and result",
		}, []string{"store", "result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cachekit_sweep_evictions_total",
			Help: "Total entries removed by the transient sweep",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cachekit_invocations_total",
			Help: "Total calls to memoized functions on a cache miss",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.evictions, m.invocations)
	}
	return m
}

func (m *Metrics) lookup(store string, status Status) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(store, status.String()).Inc()
}

func (m *Metrics) evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) invoked(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.invocations.WithLabelValues(result).Inc()
}
