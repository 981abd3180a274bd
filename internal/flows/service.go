package flows

import (
	"context"

	"github.com/MrEthical07/goConsole/api"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Navigate.Evaluate != nil && s.deps.Logout.ClearTokens != nil
}

func (s Service) Login(ctx context.Context, authenticate func(context.Context) (api.LoginResult, error)) LoginResult {
	return RunLogin(ctx, authenticate, s.deps.Login)
}

func (s Service) FetchProfile(ctx context.Context) ProfileResult {
	return RunFetchProfile(ctx, s.deps.Profile)
}

func (s Service) FetchPendingCount(ctx context.Context) PendingCountResult {
	return RunFetchPendingCount(ctx, s.deps.Profile)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) Guard(ctx context.Context, target string) NavigateResult {
	return RunGuard(ctx, target, s.deps.Navigate)
}

func (s Service) Navigate(ctx context.Context, target string) NavigateResult {
	return RunNavigate(ctx, target, s.deps.Navigate)
}
