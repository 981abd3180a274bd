package goConsole

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one Engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts sessions created by Login or LoginByCode.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login attempts.
	MetricLoginFailure
	// MetricLogout counts Logout calls that ended a live session.
	MetricLogout
	// MetricSessionExpired counts 401 responses that ended a live session.
	MetricSessionExpired
	// MetricForcedLogout counts guard decisions that forced a logout.
	MetricForcedLogout
	// MetricSessionRestored counts sessions rehydrated from storage.
	MetricSessionRestored
	// MetricProfileFetchFailure counts swallowed profile fetch failures.
	MetricProfileFetchFailure
	// MetricPendingCountFailure counts failed pending-applications fetches.
	MetricPendingCountFailure
	// MetricNavigationAllowed counts allowed navigations.
	MetricNavigationAllowed
	// MetricNavigationRedirected counts navigations sent elsewhere.
	MetricNavigationRedirected
	// MetricNavigationBlocked counts cancelled navigations.
	MetricNavigationBlocked
	// MetricNavigationSuperseded counts navigations replaced by newer ones.
	MetricNavigationSuperseded
	// MetricApprovalCheckFailed counts approval checks resolved by policy.
	MetricApprovalCheckFailed
	// MetricFaceDataCleanup counts successful face data cleanups.
	MetricFaceDataCleanup
	// MetricDomainError counts responses with a structured error payload.
	MetricDomainError
	// MetricTransportError counts network and unstructured failures.
	MetricTransportError
	// MetricResourceLoadAttempt counts map SDK injection attempts.
	MetricResourceLoadAttempt
	// MetricResourceLoadSuccess counts completed map SDK load chains.
	MetricResourceLoadSuccess
	// MetricResourceLoadFailure counts exhausted map SDK load chains.
	MetricResourceLoadFailure
	// MetricResourceLoadCoalesced counts Load calls that joined a chain.
	MetricResourceLoadCoalesced
	// MetricResourceLoadLatency is the Engine.LoadMap latency histogram.
	MetricResourceLoadLatency
	// MetricNavigationLatency is the Engine.Guard latency histogram.
	MetricNavigationLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only latency metrics accept
// observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricResourceLoadLatency, MetricNavigationLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricResourceLoadLatency || id == MetricNavigationLatency
}

// Bucket upper bounds: 10ms, 50ms, 100ms, 250ms, 500ms, 1s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
