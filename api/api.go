package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/goConsole/httpclient"
	"github.com/MrEthical07/goConsole/session"
)

// ErrUnexpectedPayload is returned when a successful response body does not
// carry the fields the console depends on.
var ErrUnexpectedPayload = errors.New("unexpected response payload")

const (
	pathLogin          = "/user/login"
	pathLoginByCode    = "/user/login-by-code"
	pathProfile        = "/user/users/me"
	pathApprovalStatus = "/user/users/me/status"
	pathFaceCleanup    = "/face/cleanup"
	pathPending        = "/admin/applications/pending"
)

// ID is a user identifier the backend may encode as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// LoginResult is the token issued by either login endpoint.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserClass   string `json:"user_class"`
}

// Role parses the user class sent with the token. Missing or unrecognized
// classes yield RoleUnknown so the profile fetch resolves it.
func (r LoginResult) Role() session.Role {
	role, _ := session.ParseRole(r.UserClass)
	return role
}

// User is the profile of the signed-in user.
type User struct {
	UserID    ID     `json:"userID"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	UserClass string `json:"user_class,omitempty"`
}

// RoleLabel returns the role field, falling back to the user class.
func (u User) RoleLabel() string {
	if u.Role != "" {
		return u.Role
	}
	return u.UserClass
}

// Client calls the console backend.
type Client struct {
	http *httpclient.Client
}

// New returns a Client on top of the request pipeline.
func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// Login exchanges an account id and password for a token.
func (c *Client) Login(ctx context.Context, userID, password string) (LoginResult, error) {
	return c.login(ctx, pathLogin, map[string]string{"userID": userID, "password": password})
}

// LoginByCode exchanges an e-mail address and a one-time code for a token.
func (c *Client) LoginByCode(ctx context.Context, email, code string) (LoginResult, error) {
	return c.login(ctx, pathLoginByCode, map[string]string{"email": email, "code": code})
}

func (c *Client) login(ctx context.Context, path string, body map[string]string) (LoginResult, error) {
	res, err := httpclient.Do[LoginResult](ctx, c.http, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		return LoginResult{}, err
	}
	if res.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("%w: login response without access_token", ErrUnexpectedPayload)
	}
	return res, nil
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context) (User, error) {
	return httpclient.Do[User](ctx, c.http, httpclient.Request{Method: http.MethodGet, Path: pathProfile})
}

// ApprovalStatus fetches the face-verification state of the current user.
func (c *Client) ApprovalStatus(ctx context.Context) (session.ApprovalStatus, error) {
	res, err := httpclient.Do[struct {
		ApprovalStatus string `json:"approval_status"`
	}](ctx, c.http, httpclient.Request{Method: http.MethodGet, Path: pathApprovalStatus})
	if err != nil {
		return session.ApprovalNone, err
	}
	status, ok := session.ParseApprovalStatus(res.ApprovalStatus)
	if !ok {
		return session.ApprovalNone, fmt.Errorf("%w: approval_status %q", ErrUnexpectedPayload, res.ApprovalStatus)
	}
	return status, nil
}

// CleanupFaceData deletes the user's previous face-verification data.
func (c *Client) CleanupFaceData(ctx context.Context) error {
	_, err := c.http.Post(ctx, pathFaceCleanup, nil)
	return err
}

// PendingApplicationsCount returns the number of applications waiting for an
// administrator. The pending endpoint answers with the application list; an
// object carrying pending_count is accepted as well.
func (c *Client) PendingApplicationsCount(ctx context.Context) (int, error) {
	body, err := c.http.Get(ctx, pathPending, nil)
	if err != nil {
		return 0, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 0, fmt.Errorf("%w: empty pending applications body", ErrUnexpectedPayload)
	}

	if body[0] == '[' {
		var apps []json.RawMessage
		if err := json.Unmarshal(body, &apps); err != nil {
			return 0, fmt.Errorf("%w: pending applications: %v", ErrUnexpectedPayload, err)
		}
		return len(apps), nil
	}

	var res struct {
		PendingCount json.RawMessage `json:"pending_count"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("%w: pending applications: %v", ErrUnexpectedPayload, err)
	}
	raw := strings.Trim(string(res.PendingCount), `"`)
	if raw == "" || raw == "null" {
		return 0, fmt.Errorf("%w: missing pending_count", ErrUnexpectedPayload)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: pending_count %s", ErrUnexpectedPayload, res.PendingCount)
	}
	return n, nil
}
