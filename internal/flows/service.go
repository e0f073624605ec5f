package flows

import "context"

// Service is the centralized flow runner built once by the root coordinator.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Post != nil
}

func (s Service) Login(ctx context.Context, req LoginRequest) LoginResult {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Register(ctx context.Context, req RegisterRequest) LoginResult {
	return RunRegister(ctx, req, s.deps.Login)
}

func (s Service) SocialExchange(ctx context.Context, code string) SocialResult {
	return RunSocialExchange(ctx, code, s.deps.Social)
}

func (s Service) PasswordResetRequest(ctx context.Context, phoneNumber string) ResetRequestResult {
	return RunPasswordResetRequest(ctx, phoneNumber, s.deps.Reset)
}

func (s Service) PasswordResetConfirm(ctx context.Context, req ResetConfirmRequest) ResetConfirmResult {
	return RunPasswordResetConfirm(ctx, req, s.deps.Reset)
}
