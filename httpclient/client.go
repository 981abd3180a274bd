package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/MrEthical07/goConsole/notify"
	"github.com/go-resty/resty/v2"
)

// TokenSource is the part of the token store the pipeline needs.
type TokenSource interface {
	Token() string
	Clear(ctx context.Context) (bool, error)
}

// Config controls the underlying HTTP client and notification durations.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	ErrorNotice time.Duration
	UserAgent   string
}

// DefaultConfig mirrors the console's axios instance: "/api" prefix and a
// ten second timeout.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:8000/api",
		Timeout:     10 * time.Second,
		ErrorNotice: 5 * time.Second,
		UserAgent:   "goConsole",
	}
}

// Hooks observe classified outcomes. OnSessionExpired runs only when a live
// token was cleared by a 401.
type Hooks struct {
	OnSessionExpired func(ctx context.Context)
	OnDomainError    func(err *DomainError)
	OnTransportError func(err *TransportError)
}

// Option configures a Client.
type Option func(*Client)

// WithNotifier sets where transport failures are shown. A nil n keeps the
// default.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithHooks installs h, replacing any earlier hooks.
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		c.hooks = h
	}
}

// WithLogger sets the request logger. A nil l keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient uses hc as the transport. Timeout from Config still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header map[string]string
}

// Client is the request pipeline. It is safe for concurrent use.
type Client struct {
	cfg        Config
	tokens     TokenSource
	notifier   notify.Notifier
	hooks      Hooks
	log        *slog.Logger
	httpClient *http.Client
	rc         *resty.Client
}

// New builds a Client whose bearer token comes from tokens.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ErrorNotice <= 0 {
		cfg.ErrorNotice = def.ErrorNotice
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	c := &Client{
		cfg:      cfg,
		tokens:   tokens,
		notifier: notify.LogNotifier{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rc = resty.NewWithClient(c.httpClient)
	} else {
		c.rc = resty.New()
	}
	c.rc.SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)
	c.rc.OnBeforeRequest(c.attachToken)
	return c
}

func (c *Client) attachToken(_ *resty.Client, r *resty.Request) error {
	if c.tokens == nil {
		return nil
	}
	if token := c.tokens.Token(); token != "" {
		r.SetAuthToken(token)
	}
	return nil
}

// Request performs req and returns the raw 2xx body, which is empty for
// no-content responses.
func (c *Client) Request(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.rc.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		te := &TransportError{Err: err}
		if ctx.Err() == nil {
			c.transportFailed(ctx, te)
		}
		return nil, te
	}

	if resp.IsSuccess() {
		return resp.Body(), nil
	}
	return nil, c.classify(ctx, resp.StatusCode(), resp.Body())
}

func (c *Client) classify(ctx context.Context, status int, body []byte) error {
	if status == http.StatusUnauthorized {
		had := false
		if c.tokens != nil {
			var err error
			had, err = c.tokens.Clear(ctx)
			if err != nil {
				c.log.Warn("clearing expired session", "error", err)
			}
		}
		if had && c.hooks.OnSessionExpired != nil {
			c.hooks.OnSessionExpired(ctx)
		}
		return &SessionExpiredError{Status: status, Body: body}
	}

	if detail, ok := domainDetail(body); ok {
		de := &DomainError{Status: status, Detail: detail, Payload: json.RawMessage(body)}
		if c.hooks.OnDomainError != nil {
			c.hooks.OnDomainError(de)
		}
		return de
	}

	te := &TransportError{Status: status, Err: fmt.Errorf("unexpected status %d", status)}
	c.transportFailed(ctx, te)
	return te
}

func (c *Client) transportFailed(ctx context.Context, te *TransportError) {
	c.log.Debug("request failed", "error", te)
	c.notifier.Notify(ctx, notify.Notification{
		Kind:     notify.Error,
		Title:    "Request failed",
		Message:  te.Error(),
		Duration: c.cfg.ErrorNotice,
	})
	if c.hooks.OnTransportError != nil {
		c.hooks.OnTransportError(te)
	}
}

// Get sends a GET with query appended to path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.Request(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Request(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Request(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete sends a DELETE without a body.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.Request(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do performs req and decodes a JSON body into T. An empty body yields the
// zero T.
func Do[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	body, err := c.Request(ctx, req)
	if err != nil {
		return out, err
	}
	if len(body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return out, nil
}
