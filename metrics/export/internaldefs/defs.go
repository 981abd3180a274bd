package internaldefs

import (
	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/session"
	"github.com/sony/gobreaker"
)

// CounterDef binds an Engine counter to its exported name.
type CounterDef struct {
	ID   goConsole.MetricID
	Name string
	Help string
}

// HistogramDef binds an Engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goConsole.MetricID
	Name string
	Help string
}

// ValueDef exports one number read from Telemetry. Counter marks values that
// only grow.
type ValueDef struct {
	Name    string
	Help    string
	Counter bool
	Value   func(goConsole.Telemetry) int64
}

// StateSetDef exports one series per state, labeled Label=state, holding 1
// for the current state and 0 for the rest.
type StateSetDef struct {
	Name    string
	Help    string
	Label   string
	States  []string
	Current func(goConsole.Telemetry) string
}

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: goConsole.MetricLoginSuccess, Name: "goconsole_login_success_total", Help: "Sessions created by a login."},
	{ID: goConsole.MetricLoginFailure, Name: "goconsole_login_failure_total", Help: "Rejected login attempts."},
	{ID: goConsole.MetricLogout, Name: "goconsole_logout_total", Help: "Logouts that ended a live session."},
	{ID: goConsole.MetricSessionExpired, Name: "goconsole_session_expired_total", Help: "Sessions ended by a 401 response."},
	{ID: goConsole.MetricForcedLogout, Name: "goconsole_forced_logout_total", Help: "Navigations that forced a logout."},
	{ID: goConsole.MetricSessionRestored, Name: "goconsole_session_restored_total", Help: "Sessions rehydrated from storage."},
	{ID: goConsole.MetricProfileFetchFailure, Name: "goconsole_profile_fetch_failure_total", Help: "Failed profile fetches."},
	{ID: goConsole.MetricPendingCountFailure, Name: "goconsole_pending_count_failure_total", Help: "Failed pending-applications count fetches."},
	{ID: goConsole.MetricNavigationAllowed, Name: "goconsole_navigation_allowed_total", Help: "Allowed navigations."},
	{ID: goConsole.MetricNavigationRedirected, Name: "goconsole_navigation_redirected_total", Help: "Navigations redirected elsewhere."},
	{ID: goConsole.MetricNavigationBlocked, Name: "goconsole_navigation_blocked_total", Help: "Cancelled navigations."},
	{ID: goConsole.MetricNavigationSuperseded, Name: "goconsole_navigation_superseded_total", Help: "Navigations replaced by a newer one."},
	{ID: goConsole.MetricApprovalCheckFailed, Name: "goconsole_approval_check_failed_total", Help: "Approval checks resolved by the failure policy."},
	{ID: goConsole.MetricFaceDataCleanup, Name: "goconsole_face_data_cleanup_total", Help: "Successful face data cleanups."},
	{ID: goConsole.MetricDomainError, Name: "goconsole_domain_error_total", Help: "Responses carrying a structured error payload."},
	{ID: goConsole.MetricTransportError, Name: "goconsole_transport_error_total", Help: "Network failures and unstructured error responses."},
	{ID: goConsole.MetricResourceLoadAttempt, Name: "goconsole_map_load_attempt_total", Help: "Map SDK injection attempts."},
	{ID: goConsole.MetricResourceLoadSuccess, Name: "goconsole_map_load_success_total", Help: "Map SDK load chains that succeeded."},
	{ID: goConsole.MetricResourceLoadFailure, Name: "goconsole_map_load_failure_total", Help: "Map SDK load chains that ran out of attempts."},
	{ID: goConsole.MetricResourceLoadCoalesced, Name: "goconsole_map_load_coalesced_total", Help: "Map loads that joined a chain in flight."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goConsole.MetricResourceLoadLatency, Name: "goconsole_map_load_latency_seconds", Help: "Map SDK load latency."},
	{ID: goConsole.MetricNavigationLatency, Name: "goconsole_navigation_latency_seconds", Help: "Guarded navigation latency."},
}

// ValueDefs lists the console state exported on every collection, including
// when Engine metrics are disabled.
var ValueDefs = []ValueDef{
	{
		Name:  "goconsole_session_authenticated",
		Help:  "1 while a session token is held.",
		Value: func(t goConsole.Telemetry) int64 { return boolValue(t.Authenticated) },
	},
	{
		Name:  "goconsole_pending_applications",
		Help:  "Face verification applications awaiting review, as last fetched.",
		Value: func(t goConsole.Telemetry) int64 { return int64(t.PendingApplications) },
	},
	{
		Name:  "goconsole_approval_polling_active",
		Help:  "1 while approval polling runs.",
		Value: func(t goConsole.Telemetry) int64 { return boolValue(t.PollingActive) },
	},
	{
		Name:  "goconsole_map_load_chain_attempts",
		Help:  "Injections made by the current or last map SDK load chain.",
		Value: func(t goConsole.Telemetry) int64 { return int64(t.MapLoad.Attempts) },
	},
	{
		Name:  "goconsole_audit_queued",
		Help:  "Audit events waiting for the sink.",
		Value: func(t goConsole.Telemetry) int64 { return int64(t.Audit.Queued) },
	},
	{
		Name:    "goconsole_audit_delivered_total",
		Help:    "Audit events handed to the sink.",
		Counter: true,
		Value:   func(t goConsole.Telemetry) int64 { return int64(t.Audit.Delivered) },
	},
	{
		Name:    "goconsole_audit_dropped_total",
		Help:    "Audit events dropped on a full buffer, a cancelled context or after close.",
		Counter: true,
		Value:   func(t goConsole.Telemetry) int64 { return int64(t.Audit.Dropped) },
	},
}

// StateSetDefs lists the enumerated console states.
var StateSetDefs = []StateSetDef{
	{
		Name:    "goconsole_session_role",
		Help:    "Role of the held session.",
		Label:   "role",
		States:  names(session.RoleUnknown, session.RoleGuest, session.RoleNormal, session.RoleVerified, session.RoleAdmin),
		Current: func(t goConsole.Telemetry) string { return t.Role.String() },
	},
	{
		Name:    "goconsole_map_load_phase",
		Help:    "Lifecycle phase of the map SDK loader.",
		Label:   "phase",
		States:  names(loader.PhaseIdle, loader.PhaseLoading, loader.PhaseLoaded, loader.PhaseFailed),
		Current: func(t goConsole.Telemetry) string { return t.MapLoad.Phase.String() },
	},
	{
		Name:    "goconsole_approval_breaker_state",
		Help:    "State of the circuit breaker around approval checks.",
		Label:   "state",
		States:  names(gobreaker.StateClosed, gobreaker.StateHalfOpen, gobreaker.StateOpen),
		Current: func(t goConsole.Telemetry) string { return t.ApprovalBreaker },
	},
}

// HistogramBounds are the upper bounds of the Engine's eight buckets.
var HistogramBounds = []string{
	"0.01",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// StateValue is 1 when state is current.
func StateValue(current, state string) int64 {
	return boolValue(current == state)
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func names[S interface{ String() string }](states ...S) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.String()
	}
	return out
}
