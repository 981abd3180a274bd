package goConsole

import (
	"errors"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/guard"
	"github.com/MrEthical07/goConsole/httpclient"
	internalflows "github.com/MrEthical07/goConsole/internal/flows"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/session"
)

var (
	// ErrSessionExpired is matched by errors returned for a 401 response.
	ErrSessionExpired = httpclient.ErrSessionExpired
	// ErrDomain is matched by DomainError values.
	ErrDomain = httpclient.ErrDomain
	// ErrTransport is matched by network failures, timeouts and error
	// statuses without a structured payload.
	ErrTransport = httpclient.ErrTransport
	// ErrResourceLoadTimeout is matched by a single timed-out load attempt.
	ErrResourceLoadTimeout = loader.ErrResourceLoadTimeout
	// ErrResourceLoadExhausted is returned to every caller of a load chain
	// that ran out of attempts.
	ErrResourceLoadExhausted = loader.ErrResourceLoadExhausted
	// ErrResourceLoadAbandoned is returned to callers of a load chain that
	// ResetMap dropped.
	ErrResourceLoadAbandoned = loader.ErrLoadAbandoned
	// ErrApprovalCheckFailed is logged when the approval status cannot be
	// fetched during navigation. It is never returned by Engine methods.
	ErrApprovalCheckFailed = guard.ErrApprovalCheckFailed
	// ErrUnknownRoute is returned for paths outside the route table.
	ErrUnknownRoute = guard.ErrUnknownRoute
	// ErrStorageUnavailable is returned when durable storage cannot be reached.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrUnexpectedPayload is returned when a successful response lacks the
	// fields the console depends on.
	ErrUnexpectedPayload = api.ErrUnexpectedPayload
	// ErrUnknownUserClass is returned when the profile carries a role label
	// the console does not know.
	ErrUnknownUserClass = internalflows.ErrUnknownUserClass

	// ErrEngineNotReady is returned by methods of a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

type (
	// DomainError carries a structured error payload from the backend.
	DomainError = httpclient.DomainError
	// TransportError covers failures without a structured payload.
	TransportError = httpclient.TransportError
	// SessionExpiredError is returned for 401 responses.
	SessionExpiredError = httpclient.SessionExpiredError
)
