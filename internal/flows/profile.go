package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/session"
)

// ErrUnknownUserClass is returned when a profile carries an unrecognized
// role label.
var ErrUnknownUserClass = errors.New("unknown user class")

// ProfileDeps captures profile refresh dependencies.
type ProfileDeps struct {
	FetchProfile      func(context.Context) (api.User, error)
	SetRole           func(context.Context, session.Role) error
	CurrentRole       func() session.Role
	FetchPendingCount func(context.Context) (int, error)
}

type ProfileResult struct {
	User    *api.User
	Role    session.Role
	Pending PendingCountResult
	Err     error
}

type PendingCountResult struct {
	Count   int
	Fetched bool
	Err     error
}

// RunFetchProfile fetches the profile, caches the role and, for admins,
// refreshes the pending-applications count. A failed count is reported as
// zero.
func RunFetchProfile(ctx context.Context, deps ProfileDeps) ProfileResult {
	user, err := deps.FetchProfile(ctx)
	if err != nil {
		return ProfileResult{Role: session.RoleUnknown, Err: err}
	}

	role, ok := session.ParseRole(user.RoleLabel())
	if !ok || role == session.RoleGuest {
		return ProfileResult{
			Role: session.RoleUnknown,
			Err:  fmt.Errorf("%w: %q", ErrUnknownUserClass, user.RoleLabel()),
		}
	}
	if err := deps.SetRole(ctx, role); err != nil {
		return ProfileResult{User: &user, Role: role, Err: err}
	}

	res := ProfileResult{User: &user, Role: role}
	res.Pending = RunFetchPendingCount(ctx, deps)
	return res
}

// RunFetchPendingCount refreshes the admin pending-applications count. It is
// a no-op for other roles.
func RunFetchPendingCount(ctx context.Context, deps ProfileDeps) PendingCountResult {
	if deps.CurrentRole == nil || deps.CurrentRole() != session.RoleAdmin || deps.FetchPendingCount == nil {
		return PendingCountResult{}
	}
	n, err := deps.FetchPendingCount(ctx)
	if err != nil {
		return PendingCountResult{Fetched: true, Err: err}
	}
	return PendingCountResult{Count: n, Fetched: true}
}
