// Package notify carries transient user-facing notifications (the console's
// toasts) from the coordination core to whatever renders them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind is the severity of a notification.
type Kind uint8

const (
	Info Kind = iota
	Success
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notification is one transient message.
type Notification struct {
	Kind     Kind
	Title    string
	Message  string
	Duration time.Duration
}

// Notifier displays notifications. Implementations must not block on user
// interaction.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Kind {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	logger.Log(ctx, level, n.Message, "title", n.Title, "kind", n.Kind.String(), "duration", n.Duration)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}
