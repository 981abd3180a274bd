package goConsole

import (
	"context"
	"sync"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/guard"
	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/mapapi"
	"github.com/MrEthical07/goConsole/notify"
	"github.com/MrEthical07/goConsole/session"
)

type (
	// User is the signed-in user's profile.
	User = api.User
	// Role is the closed set of console user classes.
	Role = session.Role
	// ApprovalStatus is the face-verification state held by the backend.
	ApprovalStatus = session.ApprovalStatus
	// NotificationStatus is the face-verification badge state.
	NotificationStatus = session.NotificationStatus
	// Decision is the outcome of guarding a navigation.
	Decision = guard.Decision
	// DecisionKind enumerates Decision outcomes.
	DecisionKind = guard.Kind
	// Prompter asks the user for acknowledgement or consent during guarding.
	Prompter = guard.Prompter
	// Notifier displays transient notifications.
	Notifier = notify.Notifier
	// Notification is one transient message.
	Notification = notify.Notification
	// MapSDK describes a loaded map provider SDK.
	MapSDK = mapapi.SDK
	// LoadStatus is a snapshot of the map loader.
	LoadStatus = loader.Status
)

// State is the UI-visible session state. Values returned by Engine.State are
// copies.
type State struct {
	Authenticated              bool
	Role                       Role
	User                       *User
	ApprovalStatus             ApprovalStatus
	PendingApplicationsCount   int
	PollingActive              bool
	FaceAuthNotificationStatus NotificationStatus
	CurrentPath                string
}

// Navigator moves the console between pages.
type Navigator interface {
	Current() string
	Navigate(ctx context.Context, path string) error
}

// MemoryNavigator records navigation in memory.
type MemoryNavigator struct {
	mu      sync.Mutex
	current string
	history []string
}

// NewMemoryNavigator starts at path.
func NewMemoryNavigator(path string) *MemoryNavigator {
	return &MemoryNavigator{current: path}
}

func (n *MemoryNavigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *MemoryNavigator) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = path
	n.history = append(n.history, path)
	return nil
}

// History returns every path navigated to, oldest first.
func (n *MemoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
