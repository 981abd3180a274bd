// Package session holds the console's credentials: the bearer token and the
// cached role, persisted through a durable key-value [Storage] so a restart
// resumes the same session.
//
// # Architecture boundaries
//
// [TokenStore] is the only writer of the token and role keys. It does not
// talk to the backend, decide navigation, or interpret token claims itself;
// claim inspection is injected as a [TokenCheck].
//
// # Invariants
//
//   - No token means [RoleGuest]; clearing the token always clears the role.
//   - Memory is updated even when the durable backend fails, so a broken
//     store can never keep a logged-out session alive in memory.
package session
