// Package guard decides whether a console navigation may proceed.
//
// A navigation is evaluated in two layers. Decide is a pure function of the
// session (token present, cached role) and the target Route; it either
// produces a final Decision or asks for one more piece of server state (the
// profile when the role is not cached, or the face-verification approval
// status for normal users entering the verification route). Guard.Evaluate
// drives those steps against its collaborators, prompts the user where the
// outcome needs consent, and applies the ApprovalFailurePolicy when the
// approval check cannot be completed.
//
// Guard never mutates the session itself. A ForceLogout decision is applied
// by the caller.
package guard
