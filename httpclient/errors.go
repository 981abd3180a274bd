package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired matches SessionExpiredError.
	ErrSessionExpired = errors.New("session expired")
	// ErrDomain matches DomainError.
	ErrDomain = errors.New("domain error")
	// ErrTransport matches TransportError.
	ErrTransport = errors.New("transport error")
)

// SessionExpiredError is returned for 401 responses.
type SessionExpiredError struct {
	Status int
	Body   []byte
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired (status %d)", e.Status)
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

// DomainError carries a structured error payload from the server.
type DomainError struct {
	Status  int
	Detail  json.RawMessage
	Payload json.RawMessage
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error (status %d): %s", e.Status, e.Message())
}

func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

// Message returns the detail as text: unquoted when it is a JSON string,
// raw JSON otherwise.
func (e *DomainError) Message() string {
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}

// TransportError covers network failures, timeouts and error statuses
// without a structured payload.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func domainDetail(body []byte) (json.RawMessage, bool) {
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}
	detail, ok := payload["detail"]
	if !ok || len(detail) == 0 || string(detail) == "null" {
		return nil, false
	}
	return detail, true
}
