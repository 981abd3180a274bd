package mapapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goConsole/loader"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sdkServer(t *testing.T, delay time.Duration, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "bad key", http.StatusForbidden)
			return
		}
		time.Sleep(delay)
		cb := r.URL.Query().Get("callback")
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprintf(w, "window.AMap={v:%q};window[%q]&&window[%q]();", r.URL.Query().Get("v"), cb, cb)
	}))
}

type recordingSignal struct {
	mu    sync.Mutex
	ready map[string]*SDK
	fail  map[string]error
	done  chan struct{}
}

func newRecordingSignal() *recordingSignal {
	return &recordingSignal{ready: map[string]*SDK{}, fail: map[string]error{}, done: make(chan struct{}, 8)}
}

func (r *recordingSignal) Ready(id string, sdk *SDK) {
	r.mu.Lock()
	r.ready[id] = sdk
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingSignal) Failed(id string, err error) {
	r.mu.Lock()
	r.fail[id] = err
	r.mu.Unlock()
	r.done <- struct{}{}
}

func TestNewInjectorRequiresKey(t *testing.T) {
	if _, err := NewInjector(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestInjectSignalsReady(t *testing.T) {
	var hits atomic.Int32
	srv := sdkServer(t, 0, &hits)
	defer srv.Close()

	inj, err := NewInjector(Config{ScriptURL: srv.URL, APIKey: "test-key"}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewInjector: %v", err)
	}
	sig := newRecordingSignal()
	if err := inj.Inject(context.Background(), "req-1", sig); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	<-sig.done

	sdk := sig.ready["req-1"]
	if sdk == nil {
		t.Fatalf("expected ready, got failure %v", sig.fail["req-1"])
	}
	if sdk.Callback != CallbackName("req-1") || sdk.Version != DefaultVersion {
		t.Fatalf("unexpected sdk %+v", sdk)
	}
	inj.Remove("req-1")
	if inj.Active() != 0 {
		t.Fatalf("expected no active scripts, got %d", inj.Active())
	}
}

func TestInjectSignalsRejected(t *testing.T) {
	var hits atomic.Int32
	srv := sdkServer(t, 0, &hits)
	defer srv.Close()

	inj, _ := NewInjector(Config{ScriptURL: srv.URL, APIKey: "wrong"}, WithLogger(quietLogger()))
	sig := newRecordingSignal()
	_ = inj.Inject(context.Background(), "req-2", sig)
	<-sig.done

	if err := sig.fail["req-2"]; !errors.Is(err, ErrScriptRejected) {
		t.Fatalf("expected ErrScriptRejected, got %v", err)
	}
}

func TestInjectRequiresCallbackInSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("window.AMap={};"))
	}))
	defer srv.Close()

	inj, _ := NewInjector(Config{ScriptURL: srv.URL, APIKey: "k"}, WithLogger(quietLogger()))
	sig := newRecordingSignal()
	_ = inj.Inject(context.Background(), "req-3", sig)
	<-sig.done

	if err := sig.fail["req-3"]; !errors.Is(err, ErrCallbackMissing) {
		t.Fatalf("expected ErrCallbackMissing, got %v", err)
	}
}

func TestMapLoaderSingleRequestForConcurrentViews(t *testing.T) {
	var hits atomic.Int32
	srv := sdkServer(t, 30*time.Millisecond, &hits)
	defer srv.Close()

	inj, _ := NewInjector(Config{ScriptURL: srv.URL, APIKey: "test-key"}, WithLogger(quietLogger()))
	l := NewLoader(inj, loader.Config{MaxRetries: 3, AttemptTimeout: time.Second, BackoffBase: time.Millisecond}, loader.WithLogger(quietLogger()))
	defer l.Close()

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Load(context.Background()); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one sdk request, got %d", got)
	}
	if inj.Active() != 0 {
		t.Fatalf("expected script cleaned up after load, got %d", inj.Active())
	}
}

func TestMapLoaderTimesOutSlowProvider(t *testing.T) {
	var hits atomic.Int32
	srv := sdkServer(t, 200*time.Millisecond, &hits)
	defer srv.Close()

	inj, _ := NewInjector(Config{ScriptURL: srv.URL, APIKey: "test-key"}, WithLogger(quietLogger()))
	l := NewLoader(inj, loader.Config{MaxRetries: 2, AttemptTimeout: 20 * time.Millisecond, BackoffBase: time.Millisecond}, loader.WithLogger(quietLogger()))
	defer l.Close()

	_, err := l.Load(context.Background())
	if !errors.Is(err, loader.ErrResourceLoadExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	if inj.Active() != 0 {
		t.Fatalf("expected timed-out scripts removed, got %d", inj.Active())
	}
}
