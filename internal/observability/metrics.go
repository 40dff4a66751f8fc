package observability

import "sync"

// Metric names emitted by the services. Kept as constants so dashboards and
// tests reference one vocabulary.
const (
	MetricCacheHit          = "view_cache_hit"
	MetricCacheMiss         = "view_cache_miss"
	MetricCacheRepair       = "view_cache_repair"
	MetricRefreshDeduped    = "session_refresh_deduped"
	MetricRefreshCalls      = "session_refresh_calls"
	MetricWarmupTaskOK      = "warmup_task_ok"
	MetricWarmupTaskFailed  = "warmup_task_failed"
	MetricWarmupTimedOut    = "warmup_timed_out"
	MetricClaimWon          = "backfill_claim_won"
	MetricClaimEmpty        = "backfill_claim_empty"
	MetricRateLimitRejected = "rate_limit_rejected"
)

// Metrics is the counter/histogram sink injected into services. Implementations
// must be safe for concurrent use.
type Metrics interface {
	Inc(name string, delta int64)
	Observe(name string, value float64)
}

type nopMetrics struct{}

func (nopMetrics) Inc(string, int64)       {}
func (nopMetrics) Observe(string, float64) {}

func NopMetrics() Metrics { return nopMetrics{} }

// InMemoryMetrics keeps counters and observations in process memory. Used by
// tests and the health endpoint snapshot.
type InMemoryMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	observed map[string][]float64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		observed: make(map[string][]float64),
	}
}

func (m *InMemoryMetrics) Inc(name string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

func (m *InMemoryMetrics) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed[name] = append(m.observed[name], value)
}

func (m *InMemoryMetrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Counters returns a copy of all counter values.
func (m *InMemoryMetrics) Counters() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		out[name] = value
	}
	return out
}
