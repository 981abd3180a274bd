package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/session"
)

type fakeSource struct {
	telemetry goConsole.Telemetry
}

func (f fakeSource) Telemetry() goConsole.Telemetry { return f.telemetry }

func guestTelemetry() goConsole.Telemetry {
	return goConsole.Telemetry{
		Metrics: goConsole.MetricsSnapshot{
			Counters:   map[goConsole.MetricID]uint64{},
			Histograms: map[goConsole.MetricID][]uint64{},
		},
		Role:            session.RoleGuest,
		ApprovalBreaker: "closed",
	}
}

func TestRenderConsoleStateWithMetricsDisabled(t *testing.T) {
	out := NewPrometheusExporterFromSource(fakeSource{telemetry: guestTelemetry()}).Render()

	if strings.Contains(out, "goconsole_login_success_total") {
		t.Fatalf("counters must be omitted while metrics are disabled, got:\n%s", out)
	}
	for _, want := range []string{
		"goconsole_session_authenticated 0",
		`goconsole_session_role{role="guest"} 1`,
		`goconsole_session_role{role="admin"} 0`,
		`goconsole_map_load_phase{phase="idle"} 1`,
		`goconsole_approval_breaker_state{state="closed"} 1`,
		`goconsole_approval_breaker_state{state="open"} 0`,
		"goconsole_audit_dropped_total 0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSessionLoaderAndBreakerState(t *testing.T) {
	tel := guestTelemetry()
	tel.Authenticated = true
	tel.Role = session.RoleAdmin
	tel.PendingApplications = 4
	tel.PollingActive = true
	tel.MapLoad = loader.Status{IsLoading: true, Phase: loader.PhaseLoading, Attempts: 2}
	tel.ApprovalBreaker = "open"
	tel.Audit = goConsole.AuditStats{Delivered: 9, Dropped: 2, Queued: 1}

	out := NewPrometheusExporterFromSource(fakeSource{telemetry: tel}).Render()
	for _, want := range []string{
		"# TYPE goconsole_session_role gauge",
		"goconsole_session_authenticated 1",
		`goconsole_session_role{role="admin"} 1`,
		`goconsole_session_role{role="guest"} 0`,
		"goconsole_pending_applications 4",
		"goconsole_approval_polling_active 1",
		`goconsole_map_load_phase{phase="loading"} 1`,
		`goconsole_map_load_phase{phase="idle"} 0`,
		"goconsole_map_load_chain_attempts 2",
		`goconsole_approval_breaker_state{state="open"} 1`,
		`goconsole_approval_breaker_state{state="closed"} 0`,
		"# TYPE goconsole_audit_delivered_total counter",
		"goconsole_audit_delivered_total 9",
		"goconsole_audit_dropped_total 2",
		"goconsole_audit_queued 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	tel := guestTelemetry()
	tel.Metrics = goConsole.MetricsSnapshot{
		Counters: map[goConsole.MetricID]uint64{
			goConsole.MetricNavigationBlocked: 7,
		},
		Histograms: map[goConsole.MetricID][]uint64{
			goConsole.MetricNavigationLatency: {1, 2, 3, 4, 5, 6, 7, 8},
		},
	}
	exp := NewPrometheusExporterFromSource(fakeSource{telemetry: tel})

	out := exp.Render()
	for _, want := range []string{
		"goconsole_navigation_blocked_total 7",
		"goconsole_login_success_total 0",
		`goconsole_navigation_latency_seconds_bucket{le="0.01"} 1`,
		`goconsole_navigation_latency_seconds_bucket{le="+Inf"} 36`,
		"goconsole_navigation_latency_seconds_count 36",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "goconsole_map_load_latency_seconds") {
		t.Fatalf("histograms absent from the snapshot must be omitted, got:\n%s", out)
	}
	if out != exp.Render() {
		t.Fatal("render must be deterministic")
	}
}

func TestRenderFromLiveMetrics(t *testing.T) {
	m := goConsole.NewMetrics(goConsole.MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(goConsole.MetricResourceLoadAttempt)
	m.Inc(goConsole.MetricResourceLoadAttempt)
	m.Observe(goConsole.MetricResourceLoadLatency, 700*time.Millisecond)

	tel := guestTelemetry()
	tel.Metrics = m.Snapshot()
	out := NewPrometheusExporterFromSource(fakeSource{telemetry: tel}).Render()
	if !strings.Contains(out, "goconsole_map_load_attempt_total 2") {
		t.Fatalf("expected attempts in output, got:\n%s", out)
	}
	if !strings.Contains(out, `goconsole_map_load_latency_seconds_bucket{le="0.5"} 0`) ||
		!strings.Contains(out, `goconsole_map_load_latency_seconds_bucket{le="1"} 1`) {
		t.Fatalf("expected 700ms in the 1s bucket, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{telemetry: guestTelemetry()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "goconsole_session_authenticated 0") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	tel := guestTelemetry()
	tel.Authenticated = true
	tel.Role = session.RoleVerified
	tel.MapLoad = loader.Status{IsLoaded: true, HasResource: true, Phase: loader.PhaseLoaded, Attempts: 1}
	tel.Metrics = goConsole.MetricsSnapshot{
		Counters: map[goConsole.MetricID]uint64{
			goConsole.MetricLoginSuccess:        1000,
			goConsole.MetricNavigationAllowed:   800,
			goConsole.MetricNavigationBlocked:   10,
			goConsole.MetricResourceLoadAttempt: 3,
		},
		Histograms: map[goConsole.MetricID][]uint64{
			goConsole.MetricNavigationLatency: {10, 20, 30, 40, 50, 60, 70, 80},
		},
	}
	exp := NewPrometheusExporterFromSource(fakeSource{telemetry: tel})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
