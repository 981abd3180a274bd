// Package api wraps the backend endpoints the console coordinator consumes:
// login, the current user's profile and face-verification status, face data
// cleanup, and the admin pending-applications counter.
//
// Every call goes through an httpclient.Client, so token injection and error
// classification are applied uniformly. Errors are returned as produced by
// the pipeline (SessionExpiredError, DomainError, TransportError) or wrapped
// with ErrUnexpectedPayload when a 2xx body cannot be understood.
package api
