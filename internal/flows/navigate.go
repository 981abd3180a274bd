package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goConsole/guard"
	"github.com/MrEthical07/goConsole/notify"
)

// ErrNavigationAborted is returned by NavigateDeps.NavigateTo when the move
// is no longer valid for the current session.
var ErrNavigationAborted = errors.New("navigation aborted")

// NavigateDeps captures guarded navigation dependencies.
type NavigateDeps struct {
	Evaluate   func(ctx context.Context, target string) (guard.Decision, error)
	Notify     func(ctx context.Context, n notify.Notification)
	Logout     func(context.Context) LogoutResult
	NavigateTo func(ctx context.Context, path string) error
}

type NavigateResult struct {
	Decision guard.Decision
	// Destination is where the user should end up; empty means stay.
	Destination string
	Moved       bool
	Logout      *LogoutResult
	Err         error
}

// RunGuard evaluates target and applies the decision's side effects: its
// notice and, for ForceLogout, the logout itself.
func RunGuard(ctx context.Context, target string, deps NavigateDeps) NavigateResult {
	d, err := deps.Evaluate(ctx, target)
	if err != nil {
		return NavigateResult{Err: err}
	}

	res := NavigateResult{Decision: d}
	if d.Kind != guard.Superseded && d.HasNotice() && deps.Notify != nil {
		deps.Notify(ctx, d.Notice)
	}

	switch d.Kind {
	case guard.Allow:
		res.Destination = d.Path
	case guard.Redirect, guard.Block:
		res.Destination = d.Redirect
	case guard.ForceLogout:
		if deps.Logout != nil {
			lr := deps.Logout(ctx)
			res.Logout = &lr
			res.Err = lr.Err
		}
		res.Destination = d.Redirect
	case guard.Superseded:
	}
	return res
}

// RunNavigate guards target and moves to the resulting destination. A forced
// logout has already moved to the entry page.
func RunNavigate(ctx context.Context, target string, deps NavigateDeps) NavigateResult {
	res := RunGuard(ctx, target, deps)
	if res.Err != nil || res.Destination == "" || res.Decision.Kind == guard.ForceLogout {
		return res
	}
	if err := deps.NavigateTo(ctx, res.Destination); err != nil {
		if errors.Is(err, ErrNavigationAborted) {
			res.Decision = guard.Decision{Kind: guard.Superseded, Path: res.Decision.Path, Reason: guard.ReasonSessionChanged}
			res.Destination = ""
			return res
		}
		res.Err = err
		return res
	}
	res.Moved = true
	return res
}
