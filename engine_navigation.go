package goConsole

import (
	"context"
	"time"

	"github.com/MrEthical07/goConsole/guard"
	internalflows "github.com/MrEthical07/goConsole/internal/flows"
	"github.com/MrEthical07/goConsole/session"
)

// Guard decides a navigation to path and applies its side effects (the
// notice and a forced logout) without moving. A Superseded decision means a
// newer Guard or Navigate call took over; nothing was applied. The error is
// non-nil when ctx ended first or a forced logout could not clean storage.
func (e *Engine) Guard(ctx context.Context, path string) (Decision, error) {
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	start := time.Now()
	res := e.flows.Guard(ctx, path)
	e.recordNavigation(ctx, res, start)
	return res.Decision, res.Err
}

// Navigate guards path and moves to the resulting destination: the target
// when allowed, or the redirect of a Redirect or Block decision.
func (e *Engine) Navigate(ctx context.Context, path string) (Decision, error) {
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	start := time.Now()
	res := e.flows.Navigate(ctx, path)
	e.recordNavigation(ctx, res, start)
	if res.Moved {
		e.publish()
	}
	return res.Decision, res.Err
}

// CurrentPath returns the page the console is on.
func (e *Engine) CurrentPath() string {
	if e == nil || e.navigator == nil {
		return ""
	}
	return e.navigator.Current()
}

// enter moves to path for a guarded navigation. A session that ended after
// the decision was made cannot enter an authenticated page.
func (e *Engine) enter(ctx context.Context, path string) error {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	if e.tokens.Token() == "" && e.guard.Table().Resolve(path).RequiresAuth {
		return internalflows.ErrNavigationAborted
	}
	return e.navigator.Navigate(ctx, path)
}

func (e *Engine) lockedCurrentPath() string {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	return e.navigator.Current()
}

func (e *Engine) lockedNavigate(ctx context.Context, path string) error {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	return e.navigator.Navigate(ctx, path)
}

func (e *Engine) recordNavigation(ctx context.Context, res internalflows.NavigateResult, start time.Time) {
	if res.Decision.Path == "" {
		// Evaluation never finished.
		return
	}
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricNavigationLatency, time.Since(start))
	}

	d := res.Decision
	switch d.Kind {
	case guard.Allow:
		e.metricInc(MetricNavigationAllowed)
	case guard.Redirect:
		e.metricInc(MetricNavigationRedirected)
	case guard.Block:
		e.metricInc(MetricNavigationBlocked)
		e.emitAudit(ctx, auditEventNavigationBlocked, false, func(ev *AuditEvent) {
			ev.Path = d.Path
			ev.Reason = string(d.Reason)
		})
	case guard.ForceLogout:
		e.metricInc(MetricForcedLogout)
		e.emitAudit(ctx, auditEventForcedLogout, true, func(ev *AuditEvent) {
			ev.Path = d.Path
			ev.Reason = string(d.Reason)
		})
	case guard.Superseded:
		e.metricInc(MetricNavigationSuperseded)
	}
	e.log.Debug("navigation decided",
		"path", d.Path,
		"decision", d.Kind.String(),
		"reason", string(d.Reason),
		"redirect", d.Redirect,
	)
}

func (e *Engine) onApprovalCheckError(err error) {
	e.metricInc(MetricApprovalCheckFailed)
	e.emitAudit(context.Background(), auditEventApprovalCheckError, false, func(ev *AuditEvent) {
		ev.Error = err.Error()
		ev.Reason = e.config.Guard.ApprovalFailurePolicy
	})
}

// approvalChecker fetches the face-verification status and caches it in the
// Engine's state.
type approvalChecker struct{ e *Engine }

func (a approvalChecker) ApprovalStatus(ctx context.Context) (ApprovalStatus, error) {
	status, err := a.e.api.ApprovalStatus(ctx)
	if err != nil {
		return session.ApprovalNone, err
	}
	a.e.mu.Lock()
	a.e.approval = status
	a.e.mu.Unlock()
	a.e.publish()
	return status, nil
}

// faceDataCleaner deletes the previous verification data after the user
// consented to resubmit.
type faceDataCleaner struct{ e *Engine }

func (c faceDataCleaner) CleanupFaceData(ctx context.Context) error {
	if err := c.e.api.CleanupFaceData(ctx); err != nil {
		c.e.emitAudit(ctx, auditEventFaceDataCleanup, false, func(ev *AuditEvent) {
			ev.Error = err.Error()
		})
		return err
	}
	c.e.metricInc(MetricFaceDataCleanup)
	c.e.emitAudit(ctx, auditEventFaceDataCleanup, true, nil)

	c.e.mu.Lock()
	c.e.approval = session.ApprovalNotRegistered
	c.e.mu.Unlock()
	c.e.publish()
	return nil
}
