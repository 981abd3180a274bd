package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goConsole/httpclient"
	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
)

type staticTokens struct{ token string }

func (s *staticTokens) Token() string { return s.token }

func (s *staticTokens) Clear(context.Context) (bool, error) {
	had := s.token != ""
	s.token = ""
	return had, nil
}

func newAPITest(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	hc := httpclient.New(httpclient.Config{BaseURL: srv.URL, Timeout: time.Second},
		&staticTokens{token: "tok"},
		httpclient.WithNotifier(&notify.Recorder{}),
		httpclient.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(hc)
}

func TestLoginDecodesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if body["userID"] != "1001" || body["password"] != "secret" {
			t.Errorf("unexpected credentials %v", body)
		}
		_, _ = w.Write([]byte(`{"access_token":"jwt","token_type":"bearer","user_class":"管理员"}`))
	})
	mux.HandleFunc("/user/login-by-code", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	})
	c := newAPITest(t, mux)

	res, err := c.Login(context.Background(), "1001", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken != "jwt" || res.Role() != session.RoleAdmin {
		t.Fatalf("unexpected login result %+v", res)
	}

	if _, err := c.LoginByCode(context.Background(), "a@b.c", "123456"); !errors.Is(err, ErrUnexpectedPayload) {
		t.Fatalf("expected ErrUnexpectedPayload for missing token, got %v", err)
	}
}

func TestProfileAcceptsNumericID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`{"userID":42,"username":"ops","email":"ops@example.com","user_class":"普通用户"}`))
	})
	c := newAPITest(t, mux)

	u, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if u.UserID != "42" || u.RoleLabel() != "普通用户" {
		t.Fatalf("unexpected profile %+v", u)
	}
}

func TestApprovalStatus(t *testing.T) {
	tests := []struct {
		body    string
		want    session.ApprovalStatus
		wantErr bool
	}{
		{body: `{"approval_status":"approved"}`, want: session.ApprovalApproved},
		{body: `{"approval_status":"rejected"}`, want: session.ApprovalRejected},
		{body: `{"approval_status":"pending"}`, want: session.ApprovalPending},
		{body: `{"approval_status":"not_registered"}`, want: session.ApprovalNotRegistered},
		{body: `{}`, want: session.ApprovalNone},
		{body: `{"approval_status":"archived"}`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/user/users/me/status", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			got, err := newAPITest(t, mux).ApprovalStatus(context.Background())
			if tc.wantErr {
				if !errors.Is(err, ErrUnexpectedPayload) {
					t.Fatalf("expected ErrUnexpectedPayload, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %v err=%v, want %v", got, err, tc.want)
			}
		})
	}
}

func TestCleanupFaceData(t *testing.T) {
	var cleanups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/face/cleanup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("cleanup method %s", r.Method)
		}
		cleanups.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newAPITest(t, mux)

	if err := c.CleanupFaceData(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if cleanups.Load() != 1 {
		t.Fatalf("expected one cleanup call, got %d", cleanups.Load())
	}
}

func TestPendingApplicationsCount(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "list", body: `[{"applyID":1,"userID":3,"result":0},{"applyID":2,"userID":4,"result":0}]`, want: 2},
		{name: "empty list", body: `[]`, want: 0},
		{name: "count object", body: `{"pending_count":3}`, want: 3},
		{name: "quoted count", body: `{"pending_count":"5"}`, want: 5},
		{name: "missing count", body: `{"total":3}`, wantErr: true},
		{name: "negative count", body: `{"pending_count":-1}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/admin/applications/pending", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("pending method %s", r.Method)
				}
				_, _ = w.Write([]byte(tc.body))
			})
			n, err := newAPITest(t, mux).PendingApplicationsCount(context.Background())
			if tc.wantErr {
				if !errors.Is(err, ErrUnexpectedPayload) {
					t.Fatalf("expected ErrUnexpectedPayload, got %d %v", n, err)
				}
				return
			}
			if err != nil || n != tc.want {
				t.Fatalf("pending count: got %d %v, want %d", n, err, tc.want)
			}
		})
	}
}

func TestDomainErrorPassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/cleanup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"no face data"}`))
	})
	err := newAPITest(t, mux).CleanupFaceData(context.Background())
	var de *httpclient.DomainError
	if !errors.As(err, &de) || de.Message() != "no face data" {
		t.Fatalf("expected domain error, got %v", err)
	}
}
