package mapapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goConsole/loader"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultScriptURL = "https://webapi.amap.com/maps"
	DefaultVersion   = "2.0"

	callbackPrefix = "gcMapCallback_"
)

var (
	// ErrMissingAPIKey is returned when no provider key is configured.
	ErrMissingAPIKey = errors.New("map api key required")
	// ErrScriptNetwork wraps transport failures while fetching the SDK.
	ErrScriptNetwork = errors.New("map script request failed")
	// ErrScriptRejected is returned for non-2xx or empty SDK responses.
	ErrScriptRejected = errors.New("map script rejected")
	// ErrCallbackMissing is returned when the SDK does not reference the
	// attempt's callback token.
	ErrCallbackMissing = errors.New("map script did not register callback")
)

// Config identifies the provider endpoint.
type Config struct {
	ScriptURL string
	Version   string
	APIKey    string
}

// SDK is a fetched provider script.
type SDK struct {
	Version  string
	Key      string
	Callback string
	Source   []byte
	LoadedAt time.Time
}

// Option configures an Injector.
type Option func(*Injector)

// WithHTTPClient routes SDK requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(i *Injector) {
		if hc != nil {
			i.client = resty.NewWithClient(hc)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Injector) {
		if l != nil {
			i.log = l
		}
	}
}

// Injector implements loader.Injector for the provider SDK. Each in-flight
// request stands for one script element; Remove tears it down.
type Injector struct {
	cfg    Config
	client *resty.Client
	log    *slog.Logger

	mu      sync.Mutex
	scripts map[string]context.CancelFunc
}

// NewInjector validates cfg and returns an Injector.
func NewInjector(cfg Config, opts ...Option) (*Injector, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = DefaultScriptURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	i := &Injector{
		cfg:     cfg,
		client:  resty.New(),
		log:     slog.Default(),
		scripts: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.client.SetHeader("Accept", "application/javascript, */*")
	return i, nil
}

// CallbackName derives the global callback the SDK must invoke for requestID.
func CallbackName(requestID string) string {
	return callbackPrefix + strings.ReplaceAll(requestID, "-", "")
}

// Inject starts fetching the SDK for requestID and returns immediately.
func (i *Injector) Inject(ctx context.Context, requestID string, signal loader.Signal[*SDK]) error {
	callback := CallbackName(requestID)
	ctx, cancel := context.WithCancel(ctx)

	i.mu.Lock()
	if prev, ok := i.scripts[requestID]; ok {
		prev()
	}
	i.scripts[requestID] = cancel
	i.mu.Unlock()

	go i.fetch(ctx, requestID, callback, signal)
	return nil
}

func (i *Injector) fetch(ctx context.Context, requestID, callback string, signal loader.Signal[*SDK]) {
	resp, err := i.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"v":        i.cfg.Version,
			"key":      i.cfg.APIKey,
			"callback": callback,
		}).
		Get(i.cfg.ScriptURL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		signal.Failed(requestID, fmt.Errorf("%w: %v", ErrScriptNetwork, err))
		return
	}

	body := resp.Body()
	if !resp.IsSuccess() || len(body) == 0 {
		signal.Failed(requestID, fmt.Errorf("%w: status %d", ErrScriptRejected, resp.StatusCode()))
		return
	}
	if !bytes.Contains(body, []byte(callback)) {
		signal.Failed(requestID, ErrCallbackMissing)
		return
	}

	i.log.Debug("map sdk fetched", "request_id", requestID, "bytes", len(body))
	signal.Ready(requestID, &SDK{
		Version:  i.cfg.Version,
		Key:      i.cfg.APIKey,
		Callback: callback,
		Source:   body,
		LoadedAt: time.Now(),
	})
}

// Remove aborts and forgets the script for requestID.
func (i *Injector) Remove(requestID string) {
	i.mu.Lock()
	cancel, ok := i.scripts[requestID]
	delete(i.scripts, requestID)
	i.mu.Unlock()
	if ok {
		cancel()
	}
}

// Active returns how many scripts are currently present.
func (i *Injector) Active() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.scripts)
}

// NewLoader wires an Injector into a singleton loader named "map".
func NewLoader(inj *Injector, cfg loader.Config, opts ...loader.Option) *loader.Loader[*SDK] {
	if cfg.Name == "" {
		cfg.Name = "map"
	}
	return loader.New[*SDK](inj, cfg, opts...)
}
