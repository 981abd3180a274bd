package session

import "strings"

// Role is the closed set of user classes the console distinguishes.
//
// RoleUnknown is only observable while a token is present but the role has
// not been cached yet; it is never persisted.
type Role uint8

const (
	// RoleUnknown means a token is held but the role has not been resolved.
	RoleUnknown Role = iota
	// RoleGuest is the role of a session without a token.
	RoleGuest
	// RoleNormal is a signed-in user without identity verification.
	RoleNormal
	// RoleVerified is a signed-in user whose face verification was approved.
	RoleVerified
	// RoleAdmin is a console administrator.
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleNormal:
		return "normal"
	case RoleVerified:
		return "verified"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Known reports whether r is a resolved role.
func (r Role) Known() bool {
	return r != RoleUnknown
}

// ParseRole maps a server role label to a Role. The backend's localized
// user-class labels are accepted alongside the English names. Unrecognized
// labels yield RoleUnknown and false.
func ParseRole(label string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "guest":
		return RoleGuest, true
	case "normal", "user", "member", "普通用户":
		return RoleNormal, true
	case "verified", "认证用户":
		return RoleVerified, true
	case "admin", "administrator", "管理员":
		return RoleAdmin, true
	default:
		return RoleUnknown, false
	}
}

// ApprovalStatus is the server-held state of a face-verification request.
type ApprovalStatus uint8

const (
	ApprovalNone ApprovalStatus = iota
	ApprovalNotRegistered
	ApprovalPending
	ApprovalApproved
	ApprovalRejected
)

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalNotRegistered:
		return "not_registered"
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	default:
		return "none"
	}
}

// ParseApprovalStatus maps the status endpoint's label to an ApprovalStatus.
// Empty labels are ApprovalNone; unrecognized labels return false.
func ParseApprovalStatus(label string) (ApprovalStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "none":
		return ApprovalNone, true
	case "not_registered", "unregistered":
		return ApprovalNotRegistered, true
	case "pending":
		return ApprovalPending, true
	case "approved":
		return ApprovalApproved, true
	case "rejected":
		return ApprovalRejected, true
	default:
		return ApprovalNone, false
	}
}

// NotificationStatus is the face-verification notification flag surfaced as
// a badge in the console shell.
type NotificationStatus uint8

const (
	NotificationNone NotificationStatus = iota
	NotificationPending
	NotificationApproved
	NotificationRejected
)

func (s NotificationStatus) String() string {
	switch s {
	case NotificationPending:
		return "pending"
	case NotificationApproved:
		return "approved"
	case NotificationRejected:
		return "rejected"
	default:
		return "none"
	}
}

// ParseNotificationStatus is the inverse of NotificationStatus.String.
func ParseNotificationStatus(label string) (NotificationStatus, bool) {
	switch label {
	case "", "none":
		return NotificationNone, true
	case "pending":
		return NotificationPending, true
	case "approved":
		return NotificationApproved, true
	case "rejected":
		return NotificationRejected, true
	default:
		return NotificationNone, false
	}
}

// Session is a point-in-time view of the credentials held by a TokenStore.
type Session struct {
	Token string
	Role  Role
}

// Authenticated reports whether a token is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
