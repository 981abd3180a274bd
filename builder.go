package goConsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/guard"
	"github.com/MrEthical07/goConsole/httpclient"
	internalaudit "github.com/MrEthical07/goConsole/internal/audit"
	"github.com/MrEthical07/goConsole/jwt"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/mapapi"
	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config

	redis      redis.UniversalClient
	storage    session.Storage
	navigator  Navigator
	notifier   notify.Notifier
	prompter   guard.Prompter
	logger     *slog.Logger
	auditSink  AuditSink
	injector   loader.Injector[*mapapi.SDK]
	httpClient *http.Client
	table      *guard.Table

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores durable session keys in Redis under Storage.Prefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStorage overrides the durable backend. It takes precedence over
// WithRedis and Storage.RedisAddr.
func (b *Builder) WithStorage(s session.Storage) *Builder {
	b.storage = s
	return b
}

func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithPrompter sets who answers approval prompts during navigation. The
// default turns prompts into notifications and declines confirmations.
func (b *Builder) WithPrompter(p guard.Prompter) *Builder {
	b.prompter = p
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMapInjector replaces the HTTP script injector behind LoadMap.
func (b *Builder) WithMapInjector(inj loader.Injector[*mapapi.SDK]) *Builder {
	b.injector = inj
	return b
}

// WithHTTPClient routes backend and map SDK requests through hc.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithRouteTable replaces the console route table.
func (b *Builder) WithRouteTable(t *guard.Table) *Builder {
	b.table = t
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. When
// Session.RestoreOnBuild is set the session is rehydrated from storage before
// Build returns. A failed Build closes whatever it started, including a Redis
// client created from Storage.RedisAddr and the audit sink.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config: cfg,
		log:    logger,
		subs:   make(map[uint64]func(State)),
	}
	ready := false
	defer func() {
		if !ready {
			engine.Close()
		}
	}()

	// -------- STORAGE --------
	switch {
	case b.storage != nil:
		engine.storage = b.storage
	case b.redis != nil:
		engine.storage = session.NewRedisStorage(b.redis, cfg.Storage.Prefix)
	case cfg.Storage.RedisAddr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			DB:       cfg.Storage.RedisDB,
			Password: cfg.Storage.RedisPassword,
		})
		engine.ownedRedis = client
		engine.storage = session.NewRedisStorage(client, cfg.Storage.Prefix)
	default:
		engine.storage = session.NewMemoryStorage()
	}

	inspector := jwt.NewInspector(cfg.Session.ExpiryLeeway)
	engine.tokens = session.NewTokenStore(engine.storage, inspector.Check)

	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.notifier = b.notifier
	if engine.notifier == nil {
		engine.notifier = notify.LogNotifier{Logger: logger}
	}
	engine.navigator = b.navigator
	if engine.navigator == nil {
		engine.navigator = NewMemoryNavigator(cfg.Guard.EntryPath)
	}

	// -------- HTTP PIPELINE --------
	engine.http = httpclient.New(httpclient.Config{
		BaseURL:     cfg.HTTP.BaseURL,
		Timeout:     cfg.HTTP.Timeout,
		ErrorNotice: cfg.Notifications.ErrorDuration,
		UserAgent:   cfg.HTTP.UserAgent,
	}, engine.tokens,
		httpclient.WithNotifier(engine.notifier),
		httpclient.WithLogger(logger),
		httpclient.WithHTTPClient(b.httpClient),
		httpclient.WithHooks(httpclient.Hooks{
			OnSessionExpired: engine.onSessionExpired,
			OnDomainError:    func(*httpclient.DomainError) { engine.metrics.Inc(MetricDomainError) },
			OnTransportError: func(*httpclient.TransportError) { engine.metrics.Inc(MetricTransportError) },
		}),
	)
	engine.api = api.New(engine.http)

	// -------- GUARD --------
	table := b.table
	if table == nil {
		var err error
		table, err = guard.NewTable(guard.Paths{
			Entry:       cfg.Guard.EntryPath,
			Landing:     cfg.Guard.LandingPath,
			SafeDefault: cfg.Guard.SafeDefaultPath,
		}, guard.ConsoleRoutes()...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	prompter := b.prompter
	if prompter == nil {
		prompter = guard.NotifyPrompter{Notifier: engine.notifier, Duration: cfg.Notifications.GuardDuration}
	}
	notices := guard.DefaultNotices()
	notices.Duration = cfg.Notifications.GuardDuration
	engine.guard = guard.New(table, guard.Deps{
		Session:   engine.tokens,
		Profiles:  profileFetcher{engine},
		Approvals: approvalChecker{engine},
		Cleaner:   faceDataCleaner{engine},
		Prompter:  prompter,
	}, guard.Config{
		FailurePolicy:   cfg.approvalFailurePolicy(),
		BreakerFailures: cfg.Guard.BreakerFailures,
		BreakerCooldown: cfg.Guard.BreakerCooldown,
		Notices:         notices,
	}, guard.WithLogger(logger), guard.WithHooks(guard.Hooks{
		OnApprovalCheckError: engine.onApprovalCheckError,
	}))

	// -------- MAP LOADER --------
	injector := b.injector
	if injector == nil && cfg.MapLoader.APIKey != "" {
		inj, err := mapapi.NewInjector(mapapi.Config{
			ScriptURL: cfg.MapLoader.ScriptURL,
			Version:   cfg.MapLoader.Version,
			APIKey:    cfg.MapLoader.APIKey,
		}, mapapi.WithLogger(logger), mapapi.WithHTTPClient(b.httpClient))
		if err != nil {
			return nil, err
		}
		injector = inj
	}
	if injector != nil {
		engine.mapLoader = loader.New[*mapapi.SDK](injector, loader.Config{
			Name:           "map",
			MaxRetries:     cfg.MapLoader.MaxRetries,
			AttemptTimeout: cfg.MapLoader.AttemptTimeout,
			BackoffBase:    cfg.MapLoader.BackoffBase,
		}, loader.WithLogger(logger), loader.WithHooks(loader.Hooks{
			OnAttempt:   func(int) { engine.metrics.Inc(MetricResourceLoadAttempt) },
			OnCoalesced: func() { engine.metrics.Inc(MetricResourceLoadCoalesced) },
			OnLoaded:    func(_ time.Duration) { engine.metrics.Inc(MetricResourceLoadSuccess) },
			OnFailed:    func(error) { engine.metrics.Inc(MetricResourceLoadFailure) },
		}))
	}

	engine.flows = engine.buildFlows()

	b.built = true

	if cfg.Session.RestoreOnBuild {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
		defer cancel()
		if err := engine.Restore(ctx); err != nil {
			return nil, err
		}
	}

	ready = true
	return engine, nil
}
