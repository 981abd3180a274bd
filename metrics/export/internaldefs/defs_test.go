package internaldefs

import (
	"strings"
	"testing"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/session"
	"github.com/sony/gobreaker"
)

func TestDefinitionsCoverEveryMetric(t *testing.T) {
	snap := goConsole.NewMetrics(goConsole.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}).Snapshot()

	seen := make(map[goConsole.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate counter definition %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "goconsole_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %s breaks the naming scheme", def.Name)
		}
		seen[def.ID], names[def.Name] = true, true
	}
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no exported definition", id)
		}
	}
	for _, def := range HistogramDefs {
		if _, ok := snap.Histograms[def.ID]; !ok {
			t.Fatalf("histogram %s is not produced by the engine", def.Name)
		}
	}
	if len(HistogramDefs) != len(snap.Histograms) {
		t.Fatalf("expected %d histogram definitions, got %d", len(snap.Histograms), len(HistogramDefs))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(HistogramBounds) != 8 {
		t.Fatal("bounds must match the engine's eight buckets")
	}
}

func TestStateSetsCoverCurrentState(t *testing.T) {
	tel := goConsole.Telemetry{
		Role:            session.RoleAdmin,
		MapLoad:         loader.Status{Phase: loader.PhaseFailed},
		ApprovalBreaker: gobreaker.StateHalfOpen.String(),
	}
	for _, def := range StateSetDefs {
		current := def.Current(tel)
		var hot int64
		for _, state := range def.States {
			hot += StateValue(current, state)
		}
		if hot != 1 {
			t.Fatalf("%s: expected exactly one current state among %v, got %d for %q", def.Name, def.States, hot, current)
		}
	}
}

func TestValueDefsReadTelemetry(t *testing.T) {
	tel := goConsole.Telemetry{
		Authenticated:       true,
		PendingApplications: 3,
		MapLoad:             loader.Status{Attempts: 2},
		Audit:               goConsole.AuditStats{Delivered: 7, Dropped: 1, Queued: 4},
	}
	want := map[string]int64{
		"goconsole_session_authenticated":   1,
		"goconsole_pending_applications":    3,
		"goconsole_approval_polling_active": 0,
		"goconsole_map_load_chain_attempts": 2,
		"goconsole_audit_queued":            4,
		"goconsole_audit_delivered_total":   7,
		"goconsole_audit_dropped_total":     1,
	}
	if len(ValueDefs) != len(want) {
		t.Fatalf("expected %d value definitions, got %d", len(want), len(ValueDefs))
	}
	for _, def := range ValueDefs {
		if got := def.Value(tel); got != want[def.Name] {
			t.Fatalf("%s: got %d want %d", def.Name, got, want[def.Name])
		}
		if def.Counter != strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("%s: counter flag disagrees with the name", def.Name)
		}
	}
}
