package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token is opaque rather than a compact JWT.
var ErrNotJWT = errors.New("token is not a jwt")

// Claims is the subset of access-token claims the console reads.
type Claims struct {
	Role      string `json:"role,omitempty"`
	UserClass string `json:"user_class,omitempty"`
	jwt.RegisteredClaims
}

// RoleLabel returns the role claim, falling back to user_class.
func (c *Claims) RoleLabel() string {
	if c == nil {
		return ""
	}
	if c.Role != "" {
		return c.Role
	}
	return c.UserClass
}

// Inspector decodes tokens without signature verification.
type Inspector struct {
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewInspector returns an Inspector tolerating leeway of clock skew when
// judging expiry.
func NewInspector(leeway time.Duration) *Inspector {
	if leeway < 0 {
		leeway = 0
	}
	return &Inspector{
		leeway: leeway,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// Inspect parses token's claims. Opaque tokens return ErrNotJWT.
func (i *Inspector) Inspect(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &Claims{}
	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// Expired reports whether claims carry an expiry that has passed.
// Tokens without exp never expire client-side.
func (i *Inspector) Expired(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return i.now().After(claims.ExpiresAt.Time.Add(i.leeway))
}

// Check matches session.TokenCheck: it reports whether token is expired and
// the role label it carries. Opaque tokens are never expired and carry no
// label.
func (i *Inspector) Check(token string) (expired bool, roleLabel string) {
	claims, err := i.Inspect(token)
	if err != nil {
		return false, ""
	}
	return i.Expired(claims), claims.RoleLabel()
}
