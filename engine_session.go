package goConsole

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goConsole/api"
	internalflows "github.com/MrEthical07/goConsole/internal/flows"
	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
)

const sessionExpiredMessage = "Login expired, please log in again."

// Login exchanges a user ID and password for a session and refreshes the
// profile. It returns the resolved role. A failed profile refresh does not
// fail the login; the role is then resolved on the next guarded navigation.
func (e *Engine) Login(ctx context.Context, userID, password string) (Role, error) {
	if err := e.ready(); err != nil {
		return session.RoleGuest, err
	}
	res := e.flows.Login(ctx, func(ctx context.Context) (api.LoginResult, error) {
		return e.api.Login(ctx, userID, password)
	})
	return e.finishLogin(ctx, "password", res)
}

// LoginByCode exchanges an e-mail address and one-time code for a session.
func (e *Engine) LoginByCode(ctx context.Context, email, code string) (Role, error) {
	if err := e.ready(); err != nil {
		return session.RoleGuest, err
	}
	res := e.flows.Login(ctx, func(ctx context.Context) (api.LoginResult, error) {
		return e.api.LoginByCode(ctx, email, code)
	})
	return e.finishLogin(ctx, "code", res)
}

func (e *Engine) finishLogin(ctx context.Context, method string, res internalflows.LoginResult) (Role, error) {
	if res.Err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, func(ev *AuditEvent) {
			ev.Error = res.Err.Error()
			ev.Metadata = map[string]string{"method": method}
		})
		return res.Role, res.Err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, func(ev *AuditEvent) {
		ev.Metadata = map[string]string{"method": method}
	})
	e.log.Info("login succeeded", "method", method, "role", res.Role.String())
	e.publish()
	return res.Role, nil
}

// FetchUserProfile refreshes the signed-in user's profile and caches the
// role. Failures are swallowed: the profile becomes empty and the error is
// only logged. For administrators the pending-applications count is
// refreshed too.
func (e *Engine) FetchUserProfile(ctx context.Context) {
	if e.ready() != nil {
		return
	}
	if e.tokens.Token() == "" {
		e.setUser(nil)
		e.publish()
		return
	}
	e.refreshProfile(ctx)
}

func (e *Engine) refreshProfile(ctx context.Context) internalflows.ProfileResult {
	res := e.flows.FetchProfile(ctx)
	if res.Err != nil {
		e.metricInc(MetricProfileFetchFailure)
		e.log.Warn("profile fetch failed", "error", res.Err)
		e.setUser(nil)
		e.publish()
		return res
	}

	e.setUser(res.User)
	if res.Pending.Fetched {
		e.applyPendingCount(ctx, res.Pending)
	}
	e.publish()
	return res
}

// FetchPendingApplicationsCount refreshes the number of face-verification
// applications awaiting review. It does nothing unless the session belongs
// to an administrator, and a failed fetch reports zero.
func (e *Engine) FetchPendingApplicationsCount(ctx context.Context) int {
	if e.ready() != nil {
		return 0
	}
	res := e.flows.FetchPendingCount(ctx)
	if !res.Fetched {
		return e.State().PendingApplicationsCount
	}
	e.applyPendingCount(ctx, res)
	e.publish()
	return res.Count
}

func (e *Engine) applyPendingCount(ctx context.Context, res internalflows.PendingCountResult) {
	n := res.Count
	if res.Err != nil {
		e.metricInc(MetricPendingCountFailure)
		e.log.Warn("pending applications count fetch failed", "error", res.Err)
		n = 0
	}

	e.mu.Lock()
	e.pendingCount = n
	e.mu.Unlock()

	var err error
	if n > 0 {
		err = e.storage.Set(ctx, session.KeyPendingApplicationsCount, strconv.Itoa(n))
	} else {
		err = e.storage.Delete(ctx, session.KeyPendingApplicationsCount)
	}
	if err != nil {
		e.log.Warn("persisting pending applications count", "error", err)
	}
}

func (e *Engine) setUser(u *User) {
	e.mu.Lock()
	e.user = u
	e.mu.Unlock()
}

// Logout ends the session: token, role, profile and every durable console
// key are cleared, and the console moves to the entry page unless it is
// already there. Logout is idempotent.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.guard.Cancel()
	return e.logout(ctx).Err
}

func (e *Engine) logout(ctx context.Context) internalflows.LogoutResult {
	e.mu.RLock()
	var userID string
	if e.user != nil {
		userID = string(e.user.UserID)
	}
	e.mu.RUnlock()
	role := e.tokens.Role()

	res := e.flows.Logout(ctx)
	if res.Err != nil {
		e.log.Error("logout left storage dirty", "error", res.Err)
	}
	if res.HadSession {
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, res.Err == nil, func(ev *AuditEvent) {
			ev.UserID = userID
			ev.Role = role.String()
			if res.Err != nil {
				ev.Error = res.Err.Error()
			}
		})
	}
	e.publish()
	return res
}

func (e *Engine) clearSessionKeys(ctx context.Context) error {
	return e.storage.Delete(ctx,
		session.KeyPollingActive,
		session.KeyFaceAuthNotificationStatus,
		session.KeyPendingApplicationsCount,
	)
}

func (e *Engine) resetState() {
	e.mu.Lock()
	e.user = nil
	e.approval = session.ApprovalNone
	e.pendingCount = 0
	e.polling = false
	e.faceAuthNotice = session.NotificationNone
	e.mu.Unlock()
}

// onSessionExpired runs when a 401 cleared a live token.
func (e *Engine) onSessionExpired(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	e.metricInc(MetricSessionExpired)
	e.emitAudit(ctx, auditEventSessionExpired, false, nil)
	e.notifier.Notify(ctx, notify.Notification{
		Kind:     notify.Warning,
		Message:  sessionExpiredMessage,
		Duration: e.config.Notifications.SessionExpiryDuration,
	})
	e.logout(ctx)
}

// SetPollingState records whether the face-verification status poller is
// running. The flag survives a restart while the session does.
func (e *Engine) SetPollingState(ctx context.Context, active bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	e.polling = active
	e.mu.Unlock()

	var err error
	if active {
		err = e.storage.Set(ctx, session.KeyPollingActive, "true")
	} else {
		err = e.storage.Delete(ctx, session.KeyPollingActive)
	}
	e.publish()
	return err
}

// SetFaceAuthNotificationStatus sets the face-verification badge.
// NotificationNone removes the durable key.
func (e *Engine) SetFaceAuthNotificationStatus(ctx context.Context, status NotificationStatus) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	e.faceAuthNotice = status
	e.mu.Unlock()

	var err error
	if status == session.NotificationNone {
		err = e.storage.Delete(ctx, session.KeyFaceAuthNotificationStatus)
	} else {
		err = e.storage.Set(ctx, session.KeyFaceAuthNotificationStatus, status.String())
	}
	e.publish()
	return err
}

// Restore rehydrates the session from durable storage. An expired token is
// discarded. Without a token, leftover console keys are removed so no stale
// flag outlives its session.
func (e *Engine) Restore(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.tokens.Restore(ctx); err != nil {
		return err
	}

	if !e.tokens.Snapshot().Authenticated() {
		e.resetState()
		err := e.clearSessionKeys(ctx)
		e.publish()
		return err
	}

	polling, _, err := e.storage.Get(ctx, session.KeyPollingActive)
	if err != nil {
		return err
	}
	noticeLabel, _, err := e.storage.Get(ctx, session.KeyFaceAuthNotificationStatus)
	if err != nil {
		return err
	}
	pendingLabel, _, err := e.storage.Get(ctx, session.KeyPendingApplicationsCount)
	if err != nil {
		return err
	}

	notice, ok := session.ParseNotificationStatus(noticeLabel)
	if !ok {
		e.log.Warn("discarding unknown face-auth notification status", "value", noticeLabel)
	}
	pending, convErr := strconv.Atoi(pendingLabel)
	if convErr != nil || pending < 0 {
		pending = 0
	}

	e.mu.Lock()
	e.polling = polling == "true"
	e.faceAuthNotice = notice
	e.pendingCount = pending
	e.mu.Unlock()

	e.metricInc(MetricSessionRestored)
	e.emitAudit(ctx, auditEventSessionRestored, true, nil)
	e.publish()
	return nil
}

// profileFetcher resolves the role for the guard by refreshing the profile.
type profileFetcher struct{ e *Engine }

func (p profileFetcher) FetchRole(ctx context.Context) (Role, error) {
	res := p.e.refreshProfile(ctx)
	return res.Role, res.Err
}
