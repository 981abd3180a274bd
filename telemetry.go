package goConsole

import (
	"github.com/MrEthical07/goConsole/session"
)

// Telemetry is a point-in-time view of the Engine for metrics exporters.
// ApprovalBreaker is "closed", "half-open" or "open".
type Telemetry struct {
	Metrics             MetricsSnapshot
	Authenticated       bool
	Role                Role
	PendingApplications int
	PollingActive       bool
	MapLoad             LoadStatus
	ApprovalBreaker     string
	Audit               AuditStats
}

// Telemetry collects counters, session gauges, map loader progress, the
// approval breaker state and audit delivery in one call.
func (e *Engine) Telemetry() Telemetry {
	if e == nil {
		return Telemetry{Metrics: e.MetricsSnapshot(), Role: session.RoleGuest, ApprovalBreaker: "closed"}
	}
	st := e.State()
	t := Telemetry{
		Metrics:             e.MetricsSnapshot(),
		Authenticated:       st.Authenticated,
		Role:                st.Role,
		PendingApplications: st.PendingApplicationsCount,
		PollingActive:       st.PollingActive,
		MapLoad:             e.MapStatus(),
		ApprovalBreaker:     "closed",
		Audit:               e.AuditStats(),
	}
	if e.guard != nil {
		t.ApprovalBreaker = e.guard.BreakerState().String()
	}
	return t
}
