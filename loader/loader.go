package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrResourceLoadTimeout is the cause of an attempt that did not signal in time.
	ErrResourceLoadTimeout = errors.New("resource load timed out")
	// ErrResourceLoadExhausted is returned to every caller of a chain whose attempts all failed.
	ErrResourceLoadExhausted = errors.New("resource load retries exhausted")
	// ErrInjectorFailed is used when an injector reports failure without a cause.
	ErrInjectorFailed = errors.New("resource injector failed")
	// ErrLoaderClosed is returned by Load after Close.
	ErrLoaderClosed = errors.New("loader closed")
	// ErrLoadAbandoned is returned to callers of a chain dropped by Reset.
	ErrLoadAbandoned = errors.New("resource load abandoned")
)

// Phase is the lifecycle state of a Loader.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Signal receives the outcome of one injection.
type Signal[T any] interface {
	Ready(requestID string, resource T)
	Failed(requestID string, err error)
}

// Injector materializes the external resource for one attempt. Inject must
// not block until readiness; it reports the outcome later through signal.
// Remove releases everything Inject created for requestID and must be safe
// to call more than once.
type Injector[T any] interface {
	Inject(ctx context.Context, requestID string, signal Signal[T]) error
	Remove(requestID string)
}

// Config bounds one load chain.
type Config struct {
	Name           string
	MaxRetries     int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
}

// DefaultConfig returns three attempts of ten seconds each with a one second
// backoff base.
func DefaultConfig() Config {
	return Config{
		Name:           "resource",
		MaxRetries:     3,
		AttemptTimeout: 10 * time.Second,
		BackoffBase:    time.Second,
	}
}

// Status is a side-effect free view of a Loader. Attempts counts the
// injections of the current or last chain.
type Status struct {
	IsLoading   bool
	IsLoaded    bool
	HasResource bool
	Phase       Phase
	Attempts    int
}

// Hooks observe a Loader. Nil fields are skipped. Hooks run outside the
// loader's lock.
type Hooks struct {
	OnAttempt   func(attempt int)
	OnCoalesced func()
	OnLoaded    func(elapsed time.Duration)
	OnFailed    func(err error)
}

// Option configures a Loader.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  Hooks
}

// WithLogger sets the logger used for attempt and failure records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

type outcome[T any] struct {
	resource T
	err      error
}

// Loader loads a resource at most once at a time and caches it once loaded.
type Loader[T any] struct {
	injector Injector[T]
	cfg      Config
	log      *slog.Logger
	hooks    Hooks

	base   context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	// injectMu orders injections against Reset removing the live script.
	injectMu    sync.Mutex
	chainCancel context.CancelFunc

	mu          sync.Mutex
	phase       Phase
	resource    T
	hasResource bool
	generation  uint64
	attempts    int
	waiters     map[string]chan outcome[T]
}

// New returns an idle Loader. Zero fields in cfg take DefaultConfig values.
func New[T any](injector Injector[T], cfg Config, opts ...Option) *Loader[T] {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = 0
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	base, cancel := context.WithCancel(context.Background())
	return &Loader[T]{
		injector: injector,
		cfg:      cfg,
		log:      o.logger.With("loader", cfg.Name),
		hooks:    o.hooks,
		base:     base,
		cancel:   cancel,
		waiters:  make(map[string]chan outcome[T]),
	}
}

// Load returns the resource, starting a load chain if none is running.
// ctx bounds only this caller's wait; the chain keeps running for the other
// callers when ctx is cancelled.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	var zero T
	if err := l.base.Err(); err != nil {
		return zero, ErrLoaderClosed
	}

	l.mu.Lock()
	if l.phase == PhaseLoaded {
		res := l.resource
		l.mu.Unlock()
		return res, nil
	}
	joined := l.phase == PhaseLoading
	var chainCtx context.Context
	var chainCancel context.CancelFunc
	if !joined {
		l.phase = PhaseLoading
		l.generation++
		l.attempts = 0
		chainCtx, chainCancel = context.WithCancel(l.base)
		l.chainCancel = chainCancel
	}
	gen := l.generation
	ch := l.group.DoChan(callKey(gen), func() (any, error) {
		return l.run(chainCtx, chainCancel, gen)
	})
	l.mu.Unlock()

	if joined {
		l.log.Debug("joining in-flight load")
		if l.hooks.OnCoalesced != nil {
			l.hooks.OnCoalesced()
		}
	}

	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		res, _ := r.Val.(T)
		return res, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Reset drops in-flight bookkeeping so the next Load starts a new chain.
// A chain in flight is cancelled and its script removed before Reset
// returns; its callers get ErrLoadAbandoned. A loaded resource stays cached.
func (l *Loader[T]) Reset() {
	l.injectMu.Lock()
	defer l.injectMu.Unlock()

	l.mu.Lock()
	var stale []string
	if l.phase == PhaseLoading {
		l.group.Forget(callKey(l.generation))
		for id := range l.waiters {
			stale = append(stale, id)
			delete(l.waiters, id)
		}
	}
	if l.chainCancel != nil {
		l.chainCancel()
		l.chainCancel = nil
	}
	l.generation++
	l.attempts = 0
	if l.hasResource {
		l.phase = PhaseLoaded
	} else {
		l.phase = PhaseIdle
	}
	phase := l.phase
	l.mu.Unlock()

	for _, id := range stale {
		l.injector.Remove(id)
	}
	l.log.Debug("loader reset", "phase", phase.String(), "removed", len(stale))
}

// Status reports the loader state.
func (l *Loader[T]) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		IsLoading:   l.phase == PhaseLoading,
		IsLoaded:    l.phase == PhaseLoaded,
		HasResource: l.hasResource,
		Phase:       l.phase,
		Attempts:    l.attempts,
	}
}

// Phase returns the current phase.
func (l *Loader[T]) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Attempts returns the number of attempts made by the current or last chain.
func (l *Loader[T]) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Close aborts any running chain. Subsequent Loads fail with ErrLoaderClosed.
func (l *Loader[T]) Close() {
	l.cancel()
}

// Ready implements Signal.
func (l *Loader[T]) Ready(requestID string, resource T) {
	l.deliver(requestID, outcome[T]{resource: resource})
}

// Failed implements Signal.
func (l *Loader[T]) Failed(requestID string, err error) {
	if err == nil {
		err = ErrInjectorFailed
	}
	l.deliver(requestID, outcome[T]{err: err})
}

func (l *Loader[T]) deliver(requestID string, out outcome[T]) {
	l.mu.Lock()
	ch, ok := l.waiters[requestID]
	if ok {
		delete(l.waiters, requestID)
	}
	l.mu.Unlock()

	if !ok {
		l.log.Debug("dropping stale signal", "request_id", requestID)
		return
	}
	ch <- out
}

func (l *Loader[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64) (T, error) {
	defer cancel()
	var zero T
	started := time.Now()

	res, err := backoff.Retry(ctx, func() (T, error) {
		return l.attempt(ctx)
	},
		backoff.WithBackOff(newLinearBackOff(l.cfg.BackoffBase)),
		backoff.WithMaxTries(uint(l.cfg.MaxRetries)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			l.log.Warn("load attempt failed", "error", err, "retry_in", wait)
		}),
	)

	l.mu.Lock()
	if l.generation == gen {
		l.chainCancel = nil
	}
	if err == nil {
		l.resource, l.hasResource = res, true
		l.phase = PhaseLoaded
		l.mu.Unlock()

		elapsed := time.Since(started)
		l.log.Info("resource loaded", "elapsed", elapsed)
		if l.hooks.OnLoaded != nil {
			l.hooks.OnLoaded(elapsed)
		}
		return res, nil
	}
	if l.generation != gen && l.base.Err() == nil {
		l.mu.Unlock()
		l.log.Debug("abandoned load chain stopped", "error", err)
		return zero, fmt.Errorf("%w: %s", ErrLoadAbandoned, l.cfg.Name)
	}
	if l.phase == PhaseLoading {
		l.phase = PhaseFailed
	}
	attempts := l.attempts
	l.mu.Unlock()

	err = fmt.Errorf("%w: %s failed after %d attempts: %w", ErrResourceLoadExhausted, l.cfg.Name, attempts, err)
	l.log.Error("resource load failed", "error", err)
	if l.hooks.OnFailed != nil {
		l.hooks.OnFailed(err)
	}
	return zero, err
}

func (l *Loader[T]) attempt(ctx context.Context) (T, error) {
	var zero T
	id := uuid.NewString()
	done := make(chan outcome[T], 1)

	l.mu.Lock()
	if l.hasResource {
		res := l.resource
		l.mu.Unlock()
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		l.mu.Unlock()
		return zero, backoff.Permanent(err)
	}
	l.attempts++
	n := l.attempts
	l.waiters[id] = done
	l.mu.Unlock()

	defer l.cleanup(id)

	l.log.Debug("load attempt", "attempt", n, "max", l.cfg.MaxRetries, "request_id", id)
	if l.hooks.OnAttempt != nil {
		l.hooks.OnAttempt(n)
	}

	l.injectMu.Lock()
	if err := ctx.Err(); err != nil {
		l.injectMu.Unlock()
		return zero, backoff.Permanent(err)
	}
	err := l.injector.Inject(ctx, id, l)
	l.injectMu.Unlock()
	if err != nil {
		return zero, err
	}

	timer := time.NewTimer(l.cfg.AttemptTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.resource, out.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrResourceLoadTimeout, l.cfg.AttemptTimeout)
	case <-ctx.Done():
		return zero, backoff.Permanent(ctx.Err())
	}
}

func (l *Loader[T]) cleanup(id string) {
	l.mu.Lock()
	delete(l.waiters, id)
	l.mu.Unlock()
	l.injector.Remove(id)
}

func callKey(gen uint64) string {
	return "load-" + strconv.FormatUint(gen, 10)
}
