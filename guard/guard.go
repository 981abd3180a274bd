package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goConsole/httpclient"
	"github.com/MrEthical07/goConsole/session"
	"github.com/sony/gobreaker"
)

// ErrApprovalCheckFailed wraps failures of the approval-status fetch. It is
// logged and resolved by the ApprovalFailurePolicy, never returned.
var ErrApprovalCheckFailed = errors.New("approval check failed")

// SessionSource exposes the current session.
type SessionSource interface {
	Snapshot() session.Session
}

// ProfileFetcher resolves and caches the role of the current session.
type ProfileFetcher interface {
	FetchRole(ctx context.Context) (session.Role, error)
}

// ApprovalChecker fetches the face-verification status of the current user.
type ApprovalChecker interface {
	ApprovalStatus(ctx context.Context) (session.ApprovalStatus, error)
}

// Cleaner deletes prior face-verification data.
type Cleaner interface {
	CleanupFaceData(ctx context.Context) error
}

// Prompter asks the user for acknowledgement or consent. Implementations
// block until the user answers or ctx is done.
type Prompter interface {
	Acknowledge(ctx context.Context, title, message string) error
	Confirm(ctx context.Context, title, message string) (bool, error)
	Inform(ctx context.Context, message string)
}

// Deps are the collaborators Evaluate consults.
type Deps struct {
	Session   SessionSource
	Profiles  ProfileFetcher
	Approvals ApprovalChecker
	Cleaner   Cleaner
	Prompter  Prompter
}

// Config tunes the asynchronous part of the guard.
type Config struct {
	FailurePolicy ApprovalFailurePolicy
	// BreakerFailures consecutive approval-check failures open the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker fails checks fast.
	BreakerCooldown time.Duration
	Notices         Notices
}

// DefaultConfig fails open and trips after three consecutive failures.
func DefaultConfig() Config {
	return Config{
		FailurePolicy:   FailOpen,
		BreakerFailures: 3,
		BreakerCooldown: 30 * time.Second,
		Notices:         DefaultNotices(),
	}
}

// Hooks observe evaluations.
type Hooks struct {
	OnDecision           func(d Decision)
	OnApprovalCheckError func(err error)
	OnCleanup            func(err error)
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the Guard's logger. A nil l keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// WithHooks installs h, replacing any earlier hooks.
func WithHooks(h Hooks) Option {
	return func(g *Guard) {
		g.hooks = h
	}
}

// Guard evaluates navigations. Starting an evaluation cancels the one still
// in flight, whose result becomes Superseded.
type Guard struct {
	table   *Table
	deps    Deps
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
	hooks   Hooks

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// New returns a Guard over table.
func New(table *Table, deps Deps, cfg Config, opts ...Option) *Guard {
	if table == nil {
		table = DefaultTable()
	}
	def := DefaultConfig()
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if cfg.Notices == (Notices{}) {
		cfg.Notices = def.Notices
	}

	g := &Guard{
		table: table,
		deps:  deps,
		cfg:   cfg,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	failures := cfg.BreakerFailures
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "approval-check",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// Table returns the route table.
func (g *Guard) Table() *Table {
	return g.table
}

// BreakerState reports the approval-check breaker state.
func (g *Guard) BreakerState() gobreaker.State {
	return g.breaker.State()
}

// Evaluate decides the navigation to target. The returned error is non-nil
// only when ctx ends before a decision is reached.
//
// A session that ends or changes while the evaluation waits on the server
// turns the result into Superseded, unless the evaluation itself forced the
// logout.
func (g *Guard) Evaluate(ctx context.Context, target string) (Decision, error) {
	route := g.table.Resolve(target)

	evalCtx, seq := g.begin(ctx)
	defer g.end(seq)

	start := g.snapshot()
	d, err := g.evaluate(evalCtx, route, start)
	switch {
	case g.superseded(seq):
		d = Decision{Kind: Superseded, Path: route.Path, Reason: ReasonSuperseded}
	case err != nil:
		return Decision{}, err
	case d.Kind != ForceLogout && g.snapshot().Token != start.Token:
		g.log.Debug("session changed during navigation", "path", route.Path, "decision", d.Kind.String())
		d = Decision{Kind: Superseded, Path: route.Path, Reason: ReasonSessionChanged}
	}

	if g.hooks.OnDecision != nil {
		g.hooks.OnDecision(d)
	}
	return d, nil
}

func (g *Guard) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.seq++
	g.cancel = cancel
	return ctx, g.seq
}

func (g *Guard) end(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seq == seq && g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Cancel abandons the evaluation in flight, which resolves as Superseded.
func (g *Guard) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *Guard) superseded(seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq != seq
}

func (g *Guard) evaluate(ctx context.Context, route Route, sess session.Session) (Decision, error) {
	n := g.cfg.Notices
	in := Input{Session: sess, Route: route, Paths: g.table.Paths()}

	step := Decide(in, n)
	if step.Kind == StepNeedProfile {
		role, err := g.fetchRole(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Decision{}, ctxErr
			}
			g.log.Warn("profile fetch failed during navigation", "path", route.Path, "error", err)
			return g.forceLogout(route, ReasonProfileUnavailable, err), nil
		}
		in.Session.Role = role
		step = Decide(in, n)
		if step.Kind == StepNeedProfile {
			return g.forceLogout(route, ReasonProfileUnavailable, nil), nil
		}
	}

	switch step.Kind {
	case StepNeedApproval:
		return g.decideApproval(ctx, route)
	case StepDecided, StepNeedProfile:
	}
	return step.Decision, nil
}

func (g *Guard) snapshot() session.Session {
	if g.deps.Session == nil {
		return session.Session{Role: session.RoleGuest}
	}
	return g.deps.Session.Snapshot()
}

func (g *Guard) fetchRole(ctx context.Context) (session.Role, error) {
	if g.deps.Profiles == nil {
		return session.RoleUnknown, errors.New("no profile fetcher configured")
	}
	return g.deps.Profiles.FetchRole(ctx)
}

func (g *Guard) forceLogout(route Route, reason Reason, cause error) Decision {
	d := Decision{
		Kind:     ForceLogout,
		Path:     route.Path,
		Redirect: g.table.Paths().Entry,
		Reason:   reason,
	}
	if errors.Is(cause, httpclient.ErrSessionExpired) {
		// The pipeline already announced the expiry.
		d.Reason = ReasonSessionExpired
		return d
	}
	d.Notice = warning(g.cfg.Notices.SessionInvalid, g.cfg.Notices.Duration)
	return d
}

func (g *Guard) decideApproval(ctx context.Context, route Route) (Decision, error) {
	n := g.cfg.Notices
	status, err := g.checkApproval(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		if errors.Is(err, httpclient.ErrSessionExpired) {
			return g.forceLogout(route, ReasonSessionExpired, err), nil
		}
		wrapped := fmt.Errorf("%w: %w", ErrApprovalCheckFailed, err)
		g.log.Warn("approval check failed", "path", route.Path, "policy", g.cfg.FailurePolicy.String(), "error", wrapped)
		if g.hooks.OnApprovalCheckError != nil {
			g.hooks.OnApprovalCheckError(wrapped)
		}
		if g.cfg.FailurePolicy == FailClosed {
			return Decision{Kind: Block, Path: route.Path, Reason: ReasonApprovalCheckFailed}, nil
		}
		return Decision{Kind: Allow, Path: route.Path, Reason: ReasonApprovalCheckFailed}, nil
	}

	switch ApprovalActionFor(status) {
	case ActionAcknowledgeLogout:
		if err := g.acknowledge(ctx, n.ApprovedTitle, n.Approved); err != nil && ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}
		return Decision{
			Kind:     ForceLogout,
			Path:     route.Path,
			Redirect: g.table.Paths().Entry,
			Reason:   ReasonApprovalApproved,
		}, nil

	case ActionConfirmCleanup:
		ok, err := g.confirm(ctx, n.RejectedTitle, n.Rejected)
		if err != nil && ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}
		if err != nil || !ok {
			return Decision{Kind: Block, Path: route.Path, Reason: ReasonCleanupDeclined}, nil
		}
		if err := g.cleanup(ctx); err != nil {
			if ctx.Err() != nil {
				return Decision{}, ctx.Err()
			}
			g.log.Warn("face data cleanup failed", "error", err)
			return Decision{
				Kind:   Block,
				Path:   route.Path,
				Reason: ReasonCleanupFailed,
				Notice: errorNotice(n.CleanupFailed, n.Duration),
			}, nil
		}
		return Decision{Kind: Allow, Path: route.Path, Reason: ReasonApprovalRejected}, nil

	case ActionInformPending:
		if g.deps.Prompter != nil {
			g.deps.Prompter.Inform(ctx, n.Pending)
		}
		return Decision{Kind: Block, Path: route.Path, Reason: ReasonApprovalPending}, nil

	case ActionAllow:
	}
	return allow(route), nil
}

func (g *Guard) checkApproval(ctx context.Context) (session.ApprovalStatus, error) {
	if g.deps.Approvals == nil {
		return session.ApprovalNone, errors.New("no approval checker configured")
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.deps.Approvals.ApprovalStatus(ctx)
	})
	if err != nil {
		return session.ApprovalNone, err
	}
	return out.(session.ApprovalStatus), nil
}

func (g *Guard) acknowledge(ctx context.Context, title, msg string) error {
	if g.deps.Prompter == nil {
		return nil
	}
	return g.deps.Prompter.Acknowledge(ctx, title, msg)
}

func (g *Guard) confirm(ctx context.Context, title, msg string) (bool, error) {
	if g.deps.Prompter == nil {
		return false, nil
	}
	return g.deps.Prompter.Confirm(ctx, title, msg)
}

func (g *Guard) cleanup(ctx context.Context) error {
	if g.deps.Cleaner == nil {
		return errors.New("no cleaner configured")
	}
	err := g.deps.Cleaner.CleanupFaceData(ctx)
	if g.hooks.OnCleanup != nil {
		g.hooks.OnCleanup(err)
	}
	return err
}
