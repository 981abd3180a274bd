package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goConsole/notify"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memTokens) Clear(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.token != ""
	m.token = ""
	return had, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens *memTokens, hooks Hooks) (*Client, *notify.Recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rec := &notify.Recorder{}
	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, tokens,
		WithNotifier(rec), WithHooks(hooks), WithLogger(quietLogger()))
	return c, rec
}

func TestBearerTokenAttached(t *testing.T) {
	var got atomic.Value
	tokens := &memTokens{token: "abc"}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, tokens, Hooks{})

	if _, err := c.Get(context.Background(), "/user/users/me", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Load() != "Bearer abc" {
		t.Fatalf("expected bearer header, got %v", got.Load())
	}

	tokens.token = ""
	if _, err := c.Get(context.Background(), "/ping", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Load() != "" {
		t.Fatalf("expected unauthenticated request, got %v", got.Load())
	}
}

func TestSuccessBodiesPassThrough(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/created":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":7}`))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}, &memTokens{}, Hooks{})

	body, err := c.Post(context.Background(), "/created", map[string]string{"a": "b"})
	if err != nil || string(body) != `{"id":7}` {
		t.Fatalf("created: body=%q err=%v", body, err)
	}

	body, err = c.Delete(context.Background(), "/empty")
	if err != nil || len(body) != 0 {
		t.Fatalf("no content: body=%q err=%v", body, err)
	}

	out, err := Do[struct {
		ID int `json:"id"`
	}](context.Background(), c, Request{Method: http.MethodPost, Path: "/created"})
	if err != nil || out.ID != 7 {
		t.Fatalf("Do: out=%+v err=%v", out, err)
	}
}

func TestUnauthorizedClearsTokenAndSignals(t *testing.T) {
	tokens := &memTokens{token: "stale"}
	var expired atomic.Int32
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
	}, tokens, Hooks{OnSessionExpired: func(context.Context) { expired.Add(1) }})

	_, err := c.Get(context.Background(), "/user/users/me", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if errors.Is(err, ErrDomain) {
		t.Fatal("401 must short-circuit before domain classification")
	}
	if tokens.Token() != "" {
		t.Fatal("expected token cleared")
	}
	if expired.Load() != 1 {
		t.Fatalf("expected one session-expired signal, got %d", expired.Load())
	}
	if rec.Count(notify.Error) != 0 {
		t.Fatal("401 must not raise a generic error notification")
	}

	// A late 401 after the session is gone rejects without signalling again.
	_, err = c.Get(context.Background(), "/user/users/me", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if expired.Load() != 1 {
		t.Fatalf("expected no further signal, got %d", expired.Load())
	}
}

func TestDomainErrorSurfacedWithoutNotification(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"verification code expired","code":41}`))
	}, &memTokens{token: "t"}, Hooks{})

	_, err := c.Post(context.Background(), "/user/login-by-code", nil)
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if de.Status != http.StatusBadRequest || de.Message() != "verification code expired" {
		t.Fatalf("unexpected domain error %+v", de)
	}
	if string(de.Payload) != `{"detail":"verification code expired","code":41}` {
		t.Fatalf("payload must be untouched, got %s", de.Payload)
	}
	if len(rec.All()) != 0 {
		t.Fatalf("expected no notification, got %+v", rec.All())
	}
}

func TestTransportErrorNotifies(t *testing.T) {
	var transport atomic.Int32
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}, &memTokens{}, Hooks{OnTransportError: func(*TransportError) { transport.Add(1) }})

	_, err := c.Get(context.Background(), "/traffic/overview", nil)
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusBadGateway {
		t.Fatalf("expected TransportError 502, got %v", err)
	}
	if rec.Count(notify.Error) != 1 || transport.Load() != 1 {
		t.Fatalf("expected one error notification, got %+v", rec.All())
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &notify.Recorder{}
	c := New(Config{BaseURL: url, Timeout: time.Second}, &memTokens{}, WithNotifier(rec), WithLogger(quietLogger()))
	_, err := c.Get(context.Background(), "/x", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if rec.Count(notify.Error) != 1 {
		t.Fatalf("expected error notification, got %+v", rec.All())
	}
}
