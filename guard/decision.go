package guard

import (
	"time"

	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
)

// Kind is the outcome of a navigation attempt.
type Kind uint8

const (
	// Allow lets the navigation proceed.
	Allow Kind = iota
	// Redirect sends the user to Decision.Redirect instead.
	Redirect
	// Block cancels the navigation. A non-empty Decision.Redirect names where
	// the user should be sent; empty means stay on the current page.
	Block
	// ForceLogout ends the session, cancels the navigation and sends the user
	// to Decision.Redirect.
	ForceLogout
	// Superseded means a newer navigation replaced this one before it was
	// decided. Nothing should be applied.
	Superseded
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Block:
		return "block"
	case ForceLogout:
		return "force_logout"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Reason identifies which rule produced a Decision.
type Reason string

const (
	ReasonAllowed             Reason = "allowed"
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonInsufficientRole    Reason = "insufficient_privilege"
	ReasonGuestOnly           Reason = "guest_only"
	ReasonProfileUnavailable  Reason = "profile_unavailable"
	ReasonSessionExpired      Reason = "session_expired"
	ReasonApprovalApproved    Reason = "approval_approved"
	ReasonApprovalPending     Reason = "approval_pending"
	ReasonApprovalRejected    Reason = "approval_rejected"
	ReasonCleanupDeclined     Reason = "cleanup_declined"
	ReasonCleanupFailed       Reason = "cleanup_failed"
	ReasonApprovalCheckFailed Reason = "approval_check_failed"
	ReasonSuperseded          Reason = "superseded"
	ReasonSessionChanged      Reason = "session_changed"
)

// Decision is the result of guarding one navigation.
type Decision struct {
	Kind     Kind
	Path     string
	Redirect string
	Reason   Reason
	// Notice is shown before the decision is applied. A zero Notice means
	// nothing is shown.
	Notice notify.Notification
}

// HasNotice reports whether the decision carries a notification.
func (d Decision) HasNotice() bool {
	return d.Notice.Message != ""
}

// Notices holds the user-facing texts of decisions and prompts.
type Notices struct {
	LoginRequired    string
	InsufficientRole string
	SessionInvalid   string
	ApprovedTitle    string
	Approved         string
	RejectedTitle    string
	Rejected         string
	Pending          string
	CleanupFailed    string
	Duration         time.Duration
}

// DefaultNotices returns the console's stock texts.
func DefaultNotices() Notices {
	return Notices{
		LoginRequired:    "Please log in first.",
		InsufficientRole: "Insufficient privilege: administrator access is required.",
		SessionInvalid:   "Your session is no longer valid. Please log in again.",
		ApprovedTitle:    "Verification approved",
		Approved:         "Your face verification has been approved. Please log in again to activate your new permissions.",
		RejectedTitle:    "Verification rejected",
		Rejected:         "Your previous face verification was rejected. Delete the previous verification data and submit again?",
		Pending:          "Your face verification is under review. Please wait for an administrator.",
		CleanupFailed:    "Failed to delete the previous verification data. Please try again later.",
		Duration:         3 * time.Second,
	}
}

// StepKind tells Evaluate what Decide needs next.
type StepKind uint8

const (
	// StepDecided means Step.Decision is final.
	StepDecided StepKind = iota
	// StepNeedProfile means the role must be fetched before deciding.
	StepNeedProfile
	// StepNeedApproval means the face-verification status must be fetched.
	StepNeedApproval
)

// Step is the result of Decide.
type Step struct {
	Kind     StepKind
	Decision Decision
}

// Input is everything Decide depends on.
type Input struct {
	Session session.Session
	Route   Route
	Paths   Paths
}

// Decide is the synchronous part of the guard. It is a pure function of in.
func Decide(in Input, n Notices) Step {
	r := in.Route
	if !in.Session.Authenticated() {
		if r.RequiresAuth {
			return decided(Decision{
				Kind:     Block,
				Path:     r.Path,
				Redirect: in.Paths.Entry,
				Reason:   ReasonUnauthenticated,
				Notice:   warning(n.LoginRequired, n.Duration),
			})
		}
		return decided(allow(r))
	}

	switch in.Session.Role {
	case session.RoleUnknown:
		return Step{Kind: StepNeedProfile, Decision: Decision{Path: r.Path}}
	case session.RoleGuest, session.RoleNormal, session.RoleVerified, session.RoleAdmin:
	}

	if r.RequiresAdmin && in.Session.Role != session.RoleAdmin {
		return decided(Decision{
			Kind:     Block,
			Path:     r.Path,
			Redirect: in.Paths.SafeDefault,
			Reason:   ReasonInsufficientRole,
			Notice:   errorNotice(n.InsufficientRole, n.Duration),
		})
	}

	if r.FaceVerification && in.Session.Role == session.RoleNormal {
		return Step{Kind: StepNeedApproval, Decision: Decision{Path: r.Path}}
	}

	if r.GuestOnly {
		return decided(Decision{
			Kind:     Redirect,
			Path:     r.Path,
			Redirect: in.Paths.Landing,
			Reason:   ReasonGuestOnly,
		})
	}
	return decided(allow(r))
}

// ApprovalAction is what the guard must do for a fetched approval status.
type ApprovalAction uint8

const (
	// ActionAllow lets the user start or continue verification.
	ActionAllow ApprovalAction = iota
	// ActionAcknowledgeLogout shows a one-time confirmation, then forces a
	// logout so the upgraded role is picked up on the next login.
	ActionAcknowledgeLogout
	// ActionConfirmCleanup asks whether prior verification data may be
	// deleted before resubmitting.
	ActionConfirmCleanup
	// ActionInformPending tells the user to wait and blocks.
	ActionInformPending
)

// ApprovalActionFor maps every ApprovalStatus to the guard's action.
func ApprovalActionFor(s session.ApprovalStatus) ApprovalAction {
	switch s {
	case session.ApprovalApproved:
		return ActionAcknowledgeLogout
	case session.ApprovalRejected:
		return ActionConfirmCleanup
	case session.ApprovalPending:
		return ActionInformPending
	case session.ApprovalNone, session.ApprovalNotRegistered:
		return ActionAllow
	default:
		return ActionAllow
	}
}

// ApprovalFailurePolicy decides navigation when the approval status cannot
// be fetched.
type ApprovalFailurePolicy uint8

const (
	// FailOpen allows the navigation so a broken check never strands the user.
	FailOpen ApprovalFailurePolicy = iota
	// FailClosed blocks the navigation.
	FailClosed
)

func (p ApprovalFailurePolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// ParseApprovalFailurePolicy parses "fail_open" or "fail_closed".
func ParseApprovalFailurePolicy(s string) (ApprovalFailurePolicy, bool) {
	switch s {
	case "", "fail_open", "open":
		return FailOpen, true
	case "fail_closed", "closed":
		return FailClosed, true
	default:
		return FailOpen, false
	}
}

func decided(d Decision) Step {
	return Step{Kind: StepDecided, Decision: d}
}

func allow(r Route) Decision {
	return Decision{Kind: Allow, Path: r.Path, Reason: ReasonAllowed}
}

func warning(msg string, d time.Duration) notify.Notification {
	return notify.Notification{Kind: notify.Warning, Message: msg, Duration: d}
}

func errorNotice(msg string, d time.Duration) notify.Notification {
	return notify.Notification{Kind: notify.Error, Message: msg, Duration: d}
}
