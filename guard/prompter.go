package guard

import (
	"context"
	"time"

	"github.com/MrEthical07/goConsole/notify"
)

// NotifyPrompter answers prompts without user interaction, turning each one
// into a notification. Confirm returns AutoConfirm.
type NotifyPrompter struct {
	Notifier    notify.Notifier
	AutoConfirm bool
	Duration    time.Duration
}

func (p NotifyPrompter) Acknowledge(ctx context.Context, title, message string) error {
	p.send(ctx, notify.Success, title, message)
	return nil
}

func (p NotifyPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.send(ctx, notify.Warning, title, message)
	return p.AutoConfirm, nil
}

func (p NotifyPrompter) Inform(ctx context.Context, message string) {
	p.send(ctx, notify.Info, "", message)
}

func (p NotifyPrompter) send(ctx context.Context, kind notify.Kind, title, message string) {
	if p.Notifier == nil {
		return
	}
	d := p.Duration
	if d <= 0 {
		d = 3 * time.Second
	}
	p.Notifier.Notify(ctx, notify.Notification{Kind: kind, Title: title, Message: message, Duration: d})
}
