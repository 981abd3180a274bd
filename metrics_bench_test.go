package goConsole

import (
	"testing"
	"time"
)

// navigationOutcomes is the counter mix one guarded navigation can produce.
var navigationOutcomes = [...]MetricID{
	MetricNavigationAllowed,
	MetricNavigationRedirected,
	MetricNavigationBlocked,
	MetricNavigationSuperseded,
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricNavigationAllowed)
	}
}

func BenchmarkMetricsRecordNavigationParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(navigationOutcomes[i%len(navigationOutcomes)])
			m.Observe(MetricNavigationLatency, time.Duration(i%300)*time.Millisecond)
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range navigationOutcomes {
		m.Inc(id)
	}
	m.Observe(MetricResourceLoadLatency, 700*time.Millisecond)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}

func BenchmarkEngineTelemetry(b *testing.B) {
	engine, err := New().WithLogger(discardLogger()).Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	defer engine.Close()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = engine.Telemetry()
		}
	})
}
