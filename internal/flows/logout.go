package flows

import (
	"context"
	"errors"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ClearTokens func(context.Context) (bool, error)
	ClearKeys   func(context.Context) error
	ResetState  func()
	CurrentPath func() string
	NavigateTo  func(ctx context.Context, path string) error
	EntryPath   string
}

type LogoutResult struct {
	HadSession bool
	Navigated  bool
	Err        error
}

// RunLogout clears every piece of session state, in memory first so a
// storage failure can never leave a half-cleared session visible, then moves
// to the entry page unless already there. Running it twice is harmless.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var errs []error

	had, err := deps.ClearTokens(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	if deps.ResetState != nil {
		deps.ResetState()
	}
	if deps.ClearKeys != nil {
		if err := deps.ClearKeys(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	res := LogoutResult{HadSession: had}
	if deps.NavigateTo != nil && deps.CurrentPath != nil && deps.CurrentPath() != deps.EntryPath {
		if err := deps.NavigateTo(ctx, deps.EntryPath); err != nil {
			errs = append(errs, err)
		} else {
			res.Navigated = true
		}
	}
	res.Err = errors.Join(errs...)
	return res
}
