// Package audit delivers console session events (logins, logouts, forced
// logouts, expiries, blocked navigations) to a Sink without blocking the
// operation that produced them.
//
// The package owns buffering and delivery only. Which events exist and when
// they fire is decided by the Engine.
package audit
