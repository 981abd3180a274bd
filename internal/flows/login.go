package flows

import (
	"context"

	"github.com/MrEthical07/goConsole/api"
	"github.com/MrEthical07/goConsole/session"
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	SetSession     func(ctx context.Context, token string, role session.Role) error
	RefreshProfile func(context.Context) ProfileResult
}

type LoginResult struct {
	Role    session.Role
	Profile ProfileResult
	Err     error
}

// RunLogin exchanges credentials through authenticate, stores the issued
// token and refreshes the profile. A failed profile refresh does not fail
// the login; the role stays unresolved until the next guarded navigation.
func RunLogin(ctx context.Context, authenticate func(context.Context) (api.LoginResult, error), deps LoginDeps) LoginResult {
	res, err := authenticate(ctx)
	if err != nil {
		return LoginResult{Role: session.RoleGuest, Err: err}
	}

	role := res.Role()
	if err := deps.SetSession(ctx, res.AccessToken, role); err != nil {
		return LoginResult{Role: session.RoleGuest, Err: err}
	}

	out := LoginResult{Role: role}
	if deps.RefreshProfile != nil {
		out.Profile = deps.RefreshProfile(ctx)
		if out.Profile.Err == nil {
			out.Role = out.Profile.Role
		}
	}
	return out
}
