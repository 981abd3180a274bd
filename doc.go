// Package goConsole coordinates the client side of a traffic-management
// console session: the held bearer token and cached role, the request
// pipeline that classifies every backend response, route guarding with the
// face-verification approval step, and the lazily loaded map provider SDK.
//
// Engine methods are safe to call from multiple goroutines once
// [Builder.Build] returns.
//
// # Architecture boundaries
//
// goConsole is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([State], [Decision], MetricsSnapshot). Components live in
// their own packages (session, httpclient, guard, loader, mapapi) and flow
// orchestration lives under internal/flows.
//
// # What this package must NOT do
//
//   - Keep a second copy of the token anywhere but the session.TokenStore.
//   - Block navigation on anything but the profile and approval checks.
//   - Import any sub-package that re-imports goConsole (no import cycles).
//
// # Session lifecycle
//
// Login stores the issued token and refreshes the profile. A 401 on any
// request clears the token, shows one expiry notice and moves to the entry
// page; later 401s on the same dead session stay silent. Logout clears the
// token, the role, the profile and every durable console key, and may be
// called any number of times.
package goConsole
