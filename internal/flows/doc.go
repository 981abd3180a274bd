// Package flows contains pure-function orchestrators for the Engine's session
// operations: login, profile refresh, logout and guarded navigation.
//
// Each flow function (RunLogin, RunFetchProfile, RunLogout, RunNavigate)
// accepts a typed dependency struct and returns a result value. Flows never
// hold state between calls and perform I/O only through their dependencies,
// so every branch can be exercised with plain function fakes.
//
// # What this package must NOT do
//
//   - Import goConsole (to avoid import cycles).
//   - Own the token store, the HTTP pipeline or the navigator. Ownership stays
//     with the Engine.
package flows
