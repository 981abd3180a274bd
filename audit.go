package goConsole

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goConsole/internal/audit"
)

type (
	// AuditEvent is one audit record.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events from the Engine's dispatcher.
	AuditSink = internalaudit.Sink
	// NoOpSink discards audit events.
	NoOpSink = internalaudit.NoOpSink
	// ChannelSink buffers audit events in a channel.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes audit events as JSON lines.
	JSONWriterSink = internalaudit.JSONWriterSink
	// LogSink writes audit events to a structured logger.
	LogSink = internalaudit.LogSink
	// AuditStats reports audit delivery counters and queue depth.
	AuditStats = internalaudit.Stats
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogSink(l *slog.Logger) LogSink {
	return internalaudit.LogSink{Logger: l}
}

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLogout             = "logout"
	auditEventSessionExpired     = "session_expired"
	auditEventSessionRestored    = "session_restored"
	auditEventForcedLogout       = "forced_logout"
	auditEventNavigationBlocked  = "navigation_blocked"
	auditEventApprovalCheckError = "approval_check_failed"
	auditEventFaceDataCleanup    = "face_data_cleanup"
)

type correlationIDContextKey struct{}

// WithCorrelationID attaches an identifier that is copied into every audit
// event emitted while serving ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

func correlationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, mutate func(*AuditEvent)) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Type:          eventType,
		Success:       success,
		CorrelationID: correlationIDFromContext(ctx),
	}
	e.mu.RLock()
	if e.user != nil {
		ev.UserID = string(e.user.UserID)
	}
	e.mu.RUnlock()
	ev.Role = e.tokens.Role().String()
	if mutate != nil {
		mutate(&ev)
	}
	e.audit.Emit(ctx, ev)
}

// AuditStats reports how many audit events reached the sink, how many were
// dropped and how many are still queued. It is zero when audit is disabled.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}
