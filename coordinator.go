package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/loqui-app/sessionkit/cache"
	"github.com/loqui-app/sessionkit/httpc"
	internalevents "github.com/loqui-app/sessionkit/internal/events"
	"github.com/loqui-app/sessionkit/internal/flows"
	"github.com/loqui-app/sessionkit/internal/rate"
	"github.com/loqui-app/sessionkit/internal/stores"
	"github.com/loqui-app/sessionkit/kv"
	"github.com/loqui-app/sessionkit/token"
)

// Coordinator is the root auth state machine. It restores and reconciles
// persisted session state on startup, decides the session phase, runs the
// auth flows, and owns the daily-content cache.
//
// Coordinator instances are built once through [Builder.Build] and are safe
// for concurrent use afterwards.
type Coordinator struct {
	config    Config
	store     kv.Store
	tokens    *token.Store
	client    *httpc.Client
	cache     *cache.Repository
	scheduler *cache.Scheduler
	profiles  *stores.ProfileStore
	flows     flows.Service
	events    *internalevents.Dispatcher
	metrics   *Metrics
	limiter   *rate.Limiter
	warnFn    func(format string, args ...any)
	now       func() time.Time
	redirect  func()

	mu            sync.Mutex
	phase         SessionPhase
	user          *UserProfile
	lastReconcile time.Time
	pending       *redirectTimer
	subs          map[int]chan PhaseChange
	nextSub       int
}

// redirectTimer is the cancellable grace-period handle. The cancelled flag
// is checked before the timer's effect fires, so cancelling twice or after
// the fire is a no-op.
type redirectTimer struct {
	timer     *time.Timer
	cancelled bool
}

// Close stops the cache scheduler and drains the event dispatcher.
func (c *Coordinator) Close() {
	if c == nil {
		return
	}
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	c.mu.Lock()
	c.cancelRedirectLocked()
	c.mu.Unlock()
	c.events.Close()
}

// Phase returns the current session phase.
func (c *Coordinator) Phase() SessionPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// CurrentUser returns a copy of the logged-in user's profile, or nil.
func (c *Coordinator) CurrentUser() *UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	user := *c.user
	return &user
}

// Credential returns the in-memory credential snapshot. The expiry is read
// from the access token's unverified claims and may be zero.
func (c *Coordinator) Credential() Credential {
	cred := Credential{
		AccessToken:  c.tokens.AccessToken(),
		RefreshToken: c.tokens.RefreshToken(),
	}
	if cred.AccessToken != "" {
		if claims, err := token.Inspect(cred.AccessToken); err == nil {
			cred.AccessExpiry = claims.ExpiresAt
		}
	}
	return cred
}

// MetricsSnapshot deep copies the coordinator's counters.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return c.metrics.Snapshot()
}

// Subscribe registers a phase-change listener. The returned cancel func is
// idempotent. Slow listeners miss intermediate transitions rather than
// blocking the state machine.
func (c *Coordinator) Subscribe() (<-chan PhaseChange, func()) {
	ch := make(chan PhaseChange, 8)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Start performs the initial restoration and reconciliation pass. When
// policy consent is required and absent the coordinator remains in
// [PhaseChecking] until [Coordinator.AcceptPolicy]. Start also launches the
// cache scheduler when configured.
func (c *Coordinator) Start(ctx context.Context) (SessionPhase, error) {
	if c == nil {
		return PhaseChecking, ErrCoordinatorNotReady
	}
	if c.scheduler != nil {
		if err := c.scheduler.Start(); err != nil {
			return PhaseChecking, err
		}
	}
	return c.evaluate(ctx, true)
}

// CheckSession re-runs reconciliation. Passes landing inside the debounce
// window of the previous one are skipped and return the current phase, so
// rapid re-renders cannot cause redirect flicker.
func (c *Coordinator) CheckSession(ctx context.Context) (SessionPhase, error) {
	if c == nil {
		return PhaseChecking, ErrCoordinatorNotReady
	}
	return c.evaluate(ctx, false)
}

// AcceptPolicy persists the consent flag and immediately re-evaluates.
func (c *Coordinator) AcceptPolicy(ctx context.Context) (SessionPhase, error) {
	if err := c.store.SetItem(ctx, c.config.Storage.PolicyAcceptedKey, "true"); err != nil {
		return c.Phase(), err
	}
	return c.evaluate(ctx, true)
}

// PolicyAccepted reads the persisted consent flag.
func (c *Coordinator) PolicyAccepted(ctx context.Context) bool {
	value, err := c.store.GetItem(ctx, c.config.Storage.PolicyAcceptedKey)
	return err == nil && value == "true"
}

// evaluate is the reconciliation pass. initial passes bypass the debounce.
func (c *Coordinator) evaluate(ctx context.Context, initial bool) (SessionPhase, error) {
	c.mu.Lock()
	if !initial && !c.lastReconcile.IsZero() &&
		c.now().Sub(c.lastReconcile) < c.config.Coordinator.DebounceWindow {
		phase := c.phase
		c.mu.Unlock()
		c.metricInc(MetricReconcileDebounced)
		return phase, nil
	}
	c.lastReconcile = c.now()
	c.mu.Unlock()

	if c.config.Coordinator.RequirePolicyConsent && !c.PolicyAccepted(ctx) {
		c.emitEvent(ctx, eventPolicyGate, false, "", PhaseChecking, ErrPolicyNotAccepted, nil)
		return PhaseChecking, nil
	}

	if err := c.tokens.Restore(ctx); err != nil {
		return c.Phase(), err
	}

	user, err := c.profiles.Load(ctx)
	if err != nil {
		if !errors.Is(err, stores.ErrProfileCorrupt) {
			return c.Phase(), err
		}
		// Self-healed: downgraded to the unauthenticated flow.
		healErr := fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
		c.warn("persisted profile unreadable, removed: %v", healErr)
		c.metricInc(MetricStorageCorruptHealed)
		c.emitEvent(ctx, eventStorageHealed, true, "", c.Phase(), healErr, nil)
		user = nil
	}

	access := c.tokens.AccessToken()
	if user != nil && access != "" {
		if mismatchErr := c.reconcileSubjects(user); mismatchErr != nil {
			c.metricInc(MetricAccountMismatch)
			c.emitEvent(ctx, eventAccountMismatch, false, user.ID, c.Phase(), mismatchErr, nil)
			if err := c.purgeSession(ctx, user.ID); err != nil {
				return c.Phase(), err
			}
			user = nil
			access = ""
		}
	}

	c.mu.Lock()
	c.user = user
	if user != nil && access != "" {
		c.cancelRedirectLocked()
		from, changed := c.setPhaseLocked(PhaseAuthenticated)
		c.mu.Unlock()
		if changed {
			c.emitPhase(ctx, from, PhaseAuthenticated, user.ID)
		}
		return PhaseAuthenticated, nil
	}

	if c.phase == PhaseUnauthenticated {
		// Already committed; no second redirect.
		c.mu.Unlock()
		return PhaseUnauthenticated, nil
	}
	c.armRedirectLocked(ctx)
	from, changed := c.setPhaseLocked(PhaseRedirectPending)
	phase := c.phase
	c.mu.Unlock()
	if changed {
		c.emitPhase(ctx, from, PhaseRedirectPending, "")
	}
	return phase, nil
}

// reconcileSubjects cross-checks the restored tokens against the restored
// profile. The refresh token's subject wins when both are present; neither
// value is trusted alone.
func (c *Coordinator) reconcileSubjects(user *UserProfile) error {
	subject := ""
	if refresh := c.tokens.RefreshToken(); refresh != "" {
		if claims, err := token.Inspect(refresh); err == nil && claims.Subject != "" {
			subject = claims.Subject
		}
	}
	if subject == "" {
		if claims, err := token.Inspect(c.tokens.AccessToken()); err == nil {
			subject = claims.Subject
		}
	}
	if subject != "" && subject != user.ID {
		return fmt.Errorf("%w: token subject %q, profile %q", ErrAccountMismatch, subject, user.ID)
	}
	return nil
}

// armRedirectLocked arms the grace timer once. Caller holds c.mu.
func (c *Coordinator) armRedirectLocked(ctx context.Context) {
	if c.pending != nil {
		return
	}
	rt := &redirectTimer{}
	rt.timer = time.AfterFunc(c.config.Coordinator.RedirectGrace, func() {
		c.commitRedirect(rt)
	})
	c.pending = rt
	c.metricInc(MetricRedirectArmed)
	c.emitEvent(ctx, eventRedirectArmed, true, "", PhaseRedirectPending, nil, nil)
}

// cancelRedirectLocked disarms any pending redirect. Idempotent; a timer
// that already fired is a no-op because commitRedirect re-checks identity.
func (c *Coordinator) cancelRedirectLocked() {
	if c.pending == nil {
		return
	}
	c.pending.cancelled = true
	c.pending.timer.Stop()
	c.pending = nil
	c.metricInc(MetricRedirectCancelled)
}

// commitRedirect runs when the grace period elapses. If a valid user+token
// pair appeared while the timer was armed the redirect is cancelled in
// favor of [PhaseAuthenticated]; otherwise the coordinator commits to
// [PhaseUnauthenticated] and fires the host's redirect handler exactly once.
func (c *Coordinator) commitRedirect(rt *redirectTimer) {
	c.mu.Lock()
	if rt.cancelled || c.pending != rt {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	if c.user != nil && c.tokens.AccessToken() != "" {
		from, changed := c.setPhaseLocked(PhaseAuthenticated)
		userID := c.user.ID
		c.mu.Unlock()
		c.metricInc(MetricRedirectCancelled)
		c.emitEvent(context.Background(), eventRedirectCancelled, true, userID, PhaseAuthenticated, nil, nil)
		if changed {
			c.emitPhase(context.Background(), from, PhaseAuthenticated, userID)
		}
		return
	}

	from, changed := c.setPhaseLocked(PhaseUnauthenticated)
	redirect := c.redirect
	c.mu.Unlock()

	c.metricInc(MetricRedirectCommitted)
	c.emitEvent(context.Background(), eventRedirectCommitted, true, "", PhaseUnauthenticated, nil, nil)
	if changed {
		c.emitPhase(context.Background(), from, PhaseUnauthenticated, "")
	}
	if redirect != nil {
		redirect()
	}
}

// setPhaseLocked transitions the phase and notifies subscribers without
// blocking. Caller holds c.mu.
func (c *Coordinator) setPhaseLocked(to SessionPhase) (SessionPhase, bool) {
	from := c.phase
	if from == to {
		return from, false
	}
	c.phase = to
	change := PhaseChange{From: from, To: to}
	for _, ch := range c.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return from, true
}

func (c *Coordinator) emitPhase(ctx context.Context, from, to SessionPhase, userID string) {
	c.emitEvent(ctx, eventPhaseChanged, true, userID, to, nil, func() map[string]string {
		return map[string]string{"from": from.String()}
	})
}

// persistSession commits a successful auth flow: any previous account's
// cached content is purged first (cross-account isolation), then profile and
// tokens are persisted, then the coordinator short-circuits to
// [PhaseAuthenticated], cancelling any armed redirect.
func (c *Coordinator) persistSession(ctx context.Context, user *stores.Profile, access, refresh string) error {
	c.mu.Lock()
	previous := c.user
	c.mu.Unlock()

	if previous != nil && previous.ID != user.ID {
		if err := c.cache.ClearUser(ctx, previous.ID); err != nil {
			return err
		}
		c.metricInc(MetricCachePurged)
		c.emitEvent(ctx, eventCachePurged, true, previous.ID, c.Phase(), nil, nil)
	}

	if err := c.profiles.Save(ctx, user); err != nil {
		return err
	}
	if err := c.tokens.SetTokens(ctx, access, refresh); err != nil {
		return err
	}

	c.mu.Lock()
	c.user = user
	c.cancelRedirectLocked()
	from, changed := c.setPhaseLocked(PhaseAuthenticated)
	c.mu.Unlock()
	if changed {
		c.emitPhase(ctx, from, PhaseAuthenticated, user.ID)
	}
	return nil
}

// purgeSession clears tokens, profile, and the user's cache partition.
func (c *Coordinator) purgeSession(ctx context.Context, userID string) error {
	if userID != "" {
		if err := c.cache.ClearUser(ctx, userID); err != nil {
			return err
		}
	}
	if err := c.profiles.Clear(ctx); err != nil {
		return err
	}
	return c.tokens.Clear(ctx)
}

// handleRefreshRejected runs after the token store clears a credential pair
// the backend refused to refresh. The session cannot recover without a new
// login, so the profile and cache partition are purged and the coordinator
// commits to [PhaseUnauthenticated] immediately, bypassing the grace timer.
func (c *Coordinator) handleRefreshRejected() {
	if c == nil {
		return
	}
	ctx := context.Background()

	c.mu.Lock()
	userID := ""
	if c.user != nil {
		userID = c.user.ID
	}
	c.mu.Unlock()

	if err := c.purgeSession(ctx, userID); err != nil {
		c.warn("purging session after rejected refresh: %v", err)
	}

	c.mu.Lock()
	c.user = nil
	c.cancelRedirectLocked()
	from, changed := c.setPhaseLocked(PhaseUnauthenticated)
	redirect := c.redirect
	c.mu.Unlock()

	c.emitEvent(ctx, eventSessionExpired, false, userID, PhaseUnauthenticated, ErrTokenRefreshFailed, nil)
	if changed {
		c.emitPhase(ctx, from, PhaseUnauthenticated, userID)
		if redirect != nil {
			redirect()
		}
	}
}

// Login runs the username/password flow. Success transitions to
// [PhaseAuthenticated] before returning.
func (c *Coordinator) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if c == nil || !c.flows.Initialized() {
		return nil, ErrCoordinatorNotReady
	}
	result := c.flows.Login(ctx, flows.LoginRequest{Username: username, Password: password})
	return c.mapLoginResult(ctx, eventLogin, MetricLoginSuccess, MetricLoginFailure, result)
}

// Register runs the registration flow. Success semantics match [Login]: the
// new account is persisted and returned logged in.
func (c *Coordinator) Register(ctx context.Context, username, phoneNumber, password string) (*AuthResult, error) {
	if c == nil || !c.flows.Initialized() {
		return nil, ErrCoordinatorNotReady
	}
	result := c.flows.Register(ctx, flows.RegisterRequest{
		Username:    username,
		PhoneNumber: phoneNumber,
		Password:    password,
	})
	return c.mapLoginResult(ctx, eventRegister, MetricRegisterSuccess, MetricRegisterFailure, result)
}

func (c *Coordinator) mapLoginResult(ctx context.Context, eventType string, okMetric, failMetric MetricID, result flows.LoginResult) (*AuthResult, error) {
	switch result.Failure {
	case flows.LoginFailureNone:
		c.metricInc(okMetric)
		c.emitEvent(ctx, eventType, true, result.User.ID, PhaseAuthenticated, nil, nil)
		return &AuthResult{
			User:         result.User,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}, nil
	case flows.LoginFailureRateLimited:
		c.metricInc(MetricLoginRateLimited)
		return nil, ErrLoginRateLimited
	case flows.LoginFailureRejected:
		c.metricInc(failMetric)
		c.emitEvent(ctx, eventType, false, "", c.Phase(), result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, result.Err)
	case flows.LoginFailureTransport:
		c.metricInc(failMetric)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, result.Err)
	default:
		c.metricInc(failMetric)
		return nil, result.Err
	}
}

// LoginWithSocial drives the provider SDK (availability check, authorize)
// and exchanges the returned code. Registered reports whether the backend
// created the account during this exchange, routing to onboarding instead
// of main content.
func (c *Coordinator) LoginWithSocial(ctx context.Context) (*SocialAuthResult, error) {
	return c.socialExchange(ctx, "")
}

// LoginWithSocialCode exchanges a code the host already obtained.
func (c *Coordinator) LoginWithSocialCode(ctx context.Context, code string) (*SocialAuthResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty social code", ErrInvalidCredentials)
	}
	return c.socialExchange(ctx, code)
}

func (c *Coordinator) socialExchange(ctx context.Context, code string) (*SocialAuthResult, error) {
	if c == nil || !c.flows.Initialized() {
		return nil, ErrCoordinatorNotReady
	}
	result := c.flows.SocialExchange(ctx, code)
	switch result.Failure {
	case flows.SocialFailureNone:
		c.metricInc(MetricSocialLoginSuccess)
		c.emitEvent(ctx, eventSocialExchange, true, result.User.ID, PhaseAuthenticated, nil, func() map[string]string {
			if result.Registered {
				return map[string]string{"status": "register"}
			}
			return map[string]string{"status": "login"}
		})
		return &SocialAuthResult{
			AuthResult: AuthResult{
				User:         result.User,
				AccessToken:  result.AccessToken,
				RefreshToken: result.RefreshToken,
			},
			Registered: result.Registered,
		}, nil
	case flows.SocialFailureUnavailable:
		c.metricInc(MetricSocialProviderUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrSocialUnavailable, result.Err)
	case flows.SocialFailureAuthorize, flows.SocialFailureRejected:
		c.metricInc(MetricSocialLoginFailure)
		c.emitEvent(ctx, eventSocialExchange, false, "", c.Phase(), result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, result.Err)
	case flows.SocialFailureTransport:
		c.metricInc(MetricSocialLoginFailure)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, result.Err)
	default:
		c.metricInc(MetricSocialLoginFailure)
		return nil, result.Err
	}
}

// RequestPasswordReset asks the backend to issue a one-time code to the
// given phone number.
func (c *Coordinator) RequestPasswordReset(ctx context.Context, phoneNumber string) (*PasswordResetChallenge, error) {
	if c == nil || !c.flows.Initialized() {
		return nil, ErrCoordinatorNotReady
	}
	result := c.flows.PasswordResetRequest(ctx, phoneNumber)
	switch result.Failure {
	case flows.ResetFailureNone:
		c.metricInc(MetricPasswordResetRequest)
		c.emitEvent(ctx, eventPasswordReset, true, "", c.Phase(), nil, func() map[string]string {
			return map[string]string{"step": "request"}
		})
		return &PasswordResetChallenge{ChallengeID: result.ChallengeID}, nil
	case flows.ResetFailureRateLimited:
		return nil, ErrLoginRateLimited
	case flows.ResetFailureRejected:
		return nil, fmt.Errorf("%w: %v", ErrPasswordResetInvalid, result.Err)
	case flows.ResetFailureTransport:
		return nil, fmt.Errorf("%w: %v", ErrNetwork, result.Err)
	default:
		return nil, result.Err
	}
}

// ConfirmPasswordReset redeems the one-time code. Success logs the user in
// like any other flow.
func (c *Coordinator) ConfirmPasswordReset(ctx context.Context, phoneNumber, challengeID, code, newPassword string) (*AuthResult, error) {
	if c == nil || !c.flows.Initialized() {
		return nil, ErrCoordinatorNotReady
	}
	result := c.flows.PasswordResetConfirm(ctx, flows.ResetConfirmRequest{
		PhoneNumber: phoneNumber,
		ChallengeID: challengeID,
		Code:        code,
		NewPassword: newPassword,
	})
	switch result.Failure {
	case flows.ResetFailureNone:
		c.metricInc(MetricPasswordResetConfirm)
		c.emitEvent(ctx, eventPasswordReset, true, result.User.ID, PhaseAuthenticated, nil, func() map[string]string {
			return map[string]string{"step": "confirm"}
		})
		return &AuthResult{
			User:         result.User,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}, nil
	case flows.ResetFailureRateLimited:
		return nil, ErrLoginRateLimited
	case flows.ResetFailureRejected:
		c.emitEvent(ctx, eventPasswordReset, false, "", c.Phase(), result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrPasswordResetInvalid, result.Err)
	case flows.ResetFailureTransport:
		return nil, fmt.Errorf("%w: %v", ErrNetwork, result.Err)
	default:
		return nil, result.Err
	}
}

// Logout revokes the session server-side (best effort), purges the user's
// cache partition, profile, and tokens, and commits to
// [PhaseUnauthenticated]. The purge completes before Logout returns, so a
// following login can never observe the previous account's content.
func (c *Coordinator) Logout(ctx context.Context) error {
	if c == nil {
		return ErrCoordinatorNotReady
	}
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()

	if user != nil && c.tokens.AccessToken() != "" {
		if err := c.client.Post(ctx, c.config.Endpoints.Logout, nil, nil); err != nil {
			c.warn("logout revoke failed, clearing locally: %v", err)
		}
	}

	userID := ""
	if user != nil {
		userID = user.ID
	}
	if err := c.purgeSession(ctx, userID); err != nil {
		return err
	}

	c.mu.Lock()
	c.user = nil
	c.cancelRedirectLocked()
	from, changed := c.setPhaseLocked(PhaseUnauthenticated)
	c.mu.Unlock()

	c.metricInc(MetricLogout)
	c.emitEvent(ctx, eventLogout, true, userID, PhaseUnauthenticated, nil, nil)
	if changed {
		c.emitPhase(ctx, from, PhaseUnauthenticated, userID)
	}
	return nil
}

// FetchDailyLogs returns today's learning content, serving the per-user
// cache when valid. force skips the cache check.
func (c *Coordinator) FetchDailyLogs(ctx context.Context, force bool) (cache.Snapshot, error) {
	if c == nil {
		return cache.Snapshot{}, ErrCoordinatorNotReady
	}
	snap, err := c.cache.FetchDailyLogs(ctx, force)
	if err != nil {
		if errors.Is(err, cache.ErrNoUser) {
			return snap, ErrUnauthenticated
		}
		if errors.Is(err, token.ErrRefreshRejected) {
			return snap, fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
		}
		if errors.Is(err, httpc.ErrUnauthorized) {
			return snap, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		if errors.Is(err, httpc.ErrNetwork) {
			return snap, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
	}
	return snap, err
}

// Cache exposes the repository for lookups and explicit cache busts.
func (c *Coordinator) Cache() *cache.Repository {
	return c.cache
}

// Client exposes the authenticated request layer for feature modules built
// on top of the session core.
func (c *Coordinator) Client() *httpc.Client {
	return c.client
}

func (c *Coordinator) currentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return ""
	}
	return c.user.ID
}

func (c *Coordinator) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Coordinator) warn(format string, args ...any) {
	if c.warnFn != nil {
		c.warnFn(format, args...)
	}
}
