package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	token := signTestToken(t, Claims{
		UserClass: "管理员",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := NewInspector(0).Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "1001" || claims.RoleLabel() != "管理员" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	for _, tok := range []string{"", "opaque", "a.b", "a.b.c.d", "x.y.z"} {
		if _, err := NewInspector(0).Inspect(tok); !errors.Is(err, ErrNotJWT) {
			t.Fatalf("%q: expected ErrNotJWT, got %v", tok, err)
		}
	}
}

func TestExpiredHonorsLeeway(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
	}}

	strict := NewInspector(0)
	strict.now = func() time.Time { return now }
	if !strict.Expired(claims) {
		t.Fatal("expected expired without leeway")
	}

	lenient := NewInspector(30 * time.Second)
	lenient.now = func() time.Time { return now }
	if lenient.Expired(claims) {
		t.Fatal("expected leeway to tolerate 10s skew")
	}

	if strict.Expired(&Claims{}) {
		t.Fatal("tokens without exp never expire")
	}
}

func TestCheck(t *testing.T) {
	insp := NewInspector(0)

	live := signTestToken(t, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if expired, label := insp.Check(live); expired || label != "admin" {
		t.Fatalf("live token: expired=%v label=%q", expired, label)
	}

	stale := signTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	if expired, _ := insp.Check(stale); !expired {
		t.Fatal("expected stale token expired")
	}

	if expired, label := insp.Check("opaque-session-id"); expired || label != "" {
		t.Fatalf("opaque token: expired=%v label=%q", expired, label)
	}
}
