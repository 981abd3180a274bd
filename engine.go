package goConsole

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/guard"
	"github.com/MrEthical07/goConsole/httpclient"
	internalaudit "github.com/MrEthical07/goConsole/internal/audit"
	internalflows "github.com/MrEthical07/goConsole/internal/flows"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/mapapi"
	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
	"github.com/redis/go-redis/v9"
)

// Engine coordinates the console session: the held token and role, the
// request pipeline, guarded navigation and the map SDK loader.
//
// Engine instances are configured once through Builder and are safe for
// concurrent use.
type Engine struct {
	config     Config
	log        *slog.Logger
	storage    session.Storage
	ownedRedis *redis.Client
	tokens     *session.TokenStore
	http       *httpclient.Client
	api        *api.Client
	guard      *guard.Guard
	mapLoader  *loader.Loader[*mapapi.SDK]
	navigator  Navigator
	notifier   notify.Notifier
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	flows      internalflows.Service

	mu             sync.RWMutex
	user           *User
	approval       ApprovalStatus
	pendingCount   int
	polling        bool
	faceAuthNotice NotificationStatus

	// navMu orders guarded moves against the logout move to the entry page.
	navMu sync.Mutex

	subMu  sync.Mutex
	subSeq uint64
	subs   map[uint64]func(State)
	closed atomic.Bool
}

// Close stops the map loader, drains the audit dispatcher and closes a Redis
// client the Engine created itself. Close is idempotent.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.mapLoader != nil {
		e.mapLoader.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedRedis != nil {
		if err := e.ownedRedis.Close(); err != nil {
			e.log.Warn("closing redis client", "error", err)
		}
	}
}

func (e *Engine) ready() error {
	if e == nil || e.tokens == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// MetricsSnapshot returns a copy of the Engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// HTTP returns the request pipeline so feature code can call endpoints the
// Engine does not wrap. Every request carries the session token and gets the
// same error classification.
func (e *Engine) HTTP() *httpclient.Client {
	if e == nil {
		return nil
	}
	return e.http
}

// Routes returns the route table navigation is guarded against.
func (e *Engine) Routes() *guard.Table {
	if e == nil || e.guard == nil {
		return nil
	}
	return e.guard.Table()
}

// State returns a copy of the UI-visible session state.
func (e *Engine) State() State {
	if e == nil || e.tokens == nil {
		return State{Role: session.RoleGuest}
	}
	snap := e.tokens.Snapshot()

	e.mu.RLock()
	st := State{
		Authenticated:              snap.Authenticated(),
		Role:                       snap.Role,
		ApprovalStatus:             e.approval,
		PendingApplicationsCount:   e.pendingCount,
		PollingActive:              e.polling,
		FaceAuthNotificationStatus: e.faceAuthNotice,
	}
	if e.user != nil {
		u := *e.user
		st.User = &u
	}
	e.mu.RUnlock()

	if e.navigator != nil {
		st.CurrentPath = e.navigator.Current()
	}
	return st
}

// Subscribe registers fn to receive the State after every change. The
// returned function removes the subscription. Callbacks run synchronously
// on the goroutine that made the change and must not block.
func (e *Engine) Subscribe(fn func(State)) func() {
	if e == nil || fn == nil {
		return func() {}
	}
	e.subMu.Lock()
	e.subSeq++
	id := e.subSeq
	e.subs[id] = fn
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) publish() {
	e.subMu.Lock()
	if len(e.subs) == 0 {
		e.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	st := e.State()
	for _, fn := range fns {
		fn(st)
	}
}

func (e *Engine) buildFlows() internalflows.Service {
	profile := internalflows.ProfileDeps{
		FetchProfile:      e.api.Profile,
		SetRole:           e.tokens.SetRole,
		CurrentRole:       e.tokens.Role,
		FetchPendingCount: e.api.PendingApplicationsCount,
	}
	logout := internalflows.LogoutDeps{
		ClearTokens: e.tokens.Clear,
		ClearKeys:   e.clearSessionKeys,
		ResetState:  e.resetState,
		CurrentPath: e.lockedCurrentPath,
		NavigateTo:  e.lockedNavigate,
		EntryPath:   e.config.Guard.EntryPath,
	}
	return internalflows.New(internalflows.Deps{
		Login: internalflows.LoginDeps{
			SetSession: e.tokens.SetSession,
			RefreshProfile: func(ctx context.Context) internalflows.ProfileResult {
				return e.refreshProfile(ctx)
			},
		},
		Profile: profile,
		Logout:  logout,
		Navigate: internalflows.NavigateDeps{
			Evaluate: e.guard.Evaluate,
			Notify:   e.notifier.Notify,
			Logout: func(ctx context.Context) internalflows.LogoutResult {
				return e.logout(ctx)
			},
			NavigateTo: e.enter,
		},
	})
}
