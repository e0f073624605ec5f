package sessionkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/loqui-app/sessionkit/cache"
	"github.com/loqui-app/sessionkit/httpc"
	internalevents "github.com/loqui-app/sessionkit/internal/events"
	"github.com/loqui-app/sessionkit/internal/flows"
	"github.com/loqui-app/sessionkit/internal/rate"
	"github.com/loqui-app/sessionkit/internal/stores"
	"github.com/loqui-app/sessionkit/kv"
	"github.com/loqui-app/sessionkit/token"
)

// Builder assembles a [Coordinator]. Storage and transport are required;
// everything else has working defaults.
//
//	coord, err := sessionkit.New().
//		WithStorage(store).
//		WithTransport(httpc.NewHTTPTransport(baseURL, nil)).
//		WithEncryptionKey(appKey).
//		Build()
type Builder struct {
	cfg      Config
	cfgSet   bool
	store    kv.Store
	trans    Transport
	social   SocialProvider
	sink     Sink
	warn     func(format string, args ...any)
	now      func() time.Time
	redirect func()
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{cfg: defaultConfig(), now: time.Now}
}

// WithConfig replaces the full configuration. Zero-valued sections fall back
// to defaults during [Builder.Build].
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cloneConfig(cfg)
	b.cfgSet = true
	return b
}

// WithStorage sets the persistence layer. Required.
func (b *Builder) WithStorage(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithTransport sets the backend transport. Required.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.trans = t
	return b
}

// WithEncryptionKey sets the application key the refresh-token sealing key
// is derived from. Minimum 16 bytes.
func (b *Builder) WithEncryptionKey(key []byte) *Builder {
	b.cfg.Tokens.EncryptionKey = append(KeyBytes(nil), key...)
	return b
}

// WithSocialProvider wires the social-login SDK. Without one the social
// flows report the provider unavailable.
func (b *Builder) WithSocialProvider(p SocialProvider) *Builder {
	b.social = p
	return b
}

// WithEventSink enables event dispatch to the given sink.
func (b *Builder) WithEventSink(sink Sink) *Builder {
	b.sink = sink
	b.cfg.Events.Enabled = true
	return b
}

// WithWarnFunc routes recoverable anomalies (corrupt storage entries, failed
// cache write-through, logout revocation failures) to the host's logger.
func (b *Builder) WithWarnFunc(warn func(format string, args ...any)) *Builder {
	b.warn = warn
	return b
}

// WithClock overrides the time source. Test seam.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRedirectHandler sets the callback fired once when the grace period
// elapses without a session. The host navigates to its login surface here.
func (b *Builder) WithRedirectHandler(fn func()) *Builder {
	b.redirect = fn
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.cfg.Metrics.Enabled = enabled
	return b
}

// Build validates the wiring and assembles the coordinator. The returned
// coordinator is in [PhaseChecking] until [Coordinator.Start].
func (b *Builder) Build() (*Coordinator, error) {
	if b.store == nil {
		return nil, errors.New("sessionkit: storage is required")
	}
	if b.trans == nil {
		return nil, errors.New("sessionkit: transport is required")
	}
	cfg := b.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.now == nil {
		b.now = time.Now
	}

	metrics := NewMetrics(cfg.Metrics)

	sink := b.sink
	if sink == nil {
		sink = internalevents.NoOpSink{}
	}
	dispatcher := internalevents.NewDispatcher(internalevents.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, sink)

	// Declared ahead of the token store so its rejection hook can reach the
	// coordinator once both exist.
	var c *Coordinator

	refresh := newRefreshFunc(b.trans, cfg.Endpoints.Refresh)
	counted := func(ctx context.Context, refreshToken string) (string, string, error) {
		access, next, err := refresh(ctx, refreshToken)
		if err != nil {
			metrics.Inc(MetricRefreshFailure)
			return "", "", err
		}
		metrics.Inc(MetricRefreshSuccess)
		return access, next, nil
	}

	tokens, err := token.NewStore(b.store, token.Config{
		AccessTokenKey:  cfg.Storage.AccessTokenKey,
		RefreshTokenKey: cfg.Storage.RefreshTokenKey,
		EncryptionKey:   []byte(cfg.Tokens.EncryptionKey),
		Refresh:         counted,
		Warn:            b.warn,
		Hooks: token.Hooks{
			RefreshCoalesced: func() { metrics.Inc(MetricRefreshCoalesced) },
			RefreshRejected:  func() { c.handleRefreshRejected() },
			CorruptHealed:    func(string) { metrics.Inc(MetricStorageCorruptHealed) },
		},
	})
	if err != nil {
		return nil, err
	}

	client := httpc.NewClient(httpc.Config{
		Transport:   b.trans,
		Tokens:      tokens,
		ExemptPaths: cfg.exemptPaths(),
		RetryHook:   func() { metrics.Inc(MetricRetryAfterRefresh) },
		Warn:        b.warn,
	})

	c = &Coordinator{
		config:   cfg,
		store:    b.store,
		tokens:   tokens,
		client:   client,
		profiles: stores.NewProfileStore(b.store, cfg.Storage.UserProfileKey, b.warn),
		events:   dispatcher,
		metrics:  metrics,
		warnFn:   b.warn,
		now:      b.now,
		redirect: b.redirect,
		phase:    PhaseChecking,
		subs:     map[int]chan PhaseChange{},
	}

	repo, err := cache.NewRepository(cache.Config{
		Store:             b.store,
		Client:            client,
		Path:              cfg.Endpoints.DailyLogs,
		UserID:            c.currentUserID,
		Prefix:            cfg.Storage.DailyPrefix,
		LastFetchedPrefix: cfg.Storage.LastFetchedPrefix,
		Now:               b.now,
		Warn:              b.warn,
		Hooks: cache.Hooks{
			Hit:            func() { metrics.Inc(MetricCacheHit) },
			Miss:           func() { metrics.Inc(MetricCacheMiss) },
			Stale:          func() { metrics.Inc(MetricCacheStale) },
			Purged:         func() { metrics.Inc(MetricCachePurged) },
			CorruptSkipped: func() { metrics.Inc(MetricCacheCorruptSkipped) },
		},
	})
	if err != nil {
		return nil, err
	}
	c.cache = repo

	if cfg.Cache.AutoRefresh {
		scheduler, err := cache.NewScheduler(cache.SchedulerConfig{
			Repo: repo,
			Spec: cfg.Cache.RefreshSpec,
			Warn: b.warn,
			OnRefresh: func(err error) {
				c.emitEvent(context.Background(), eventScheduledRefreshed, err == nil, c.currentUserID(), c.Phase(), err, nil)
			},
		})
		if err != nil {
			return nil, err
		}
		c.scheduler = scheduler
	}

	if cfg.RateLimit.Enabled {
		c.limiter = rate.New(cfg.RateLimit.LoginsPerMinute, cfg.RateLimit.Burst)
	}
	var allow func(identifier string) bool
	if c.limiter != nil {
		allow = c.limiter.Allow
	}

	isInstalled := func(ctx context.Context) (bool, error) {
		if b.social == nil {
			return false, nil
		}
		return b.social.IsProviderInstalled(ctx)
	}
	authorize := func(ctx context.Context, scope, state string) (string, error) {
		if b.social == nil {
			return "", errors.New("sessionkit: no social provider configured")
		}
		return b.social.Authorize(ctx, scope, state)
	}

	c.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			LoginPath:    cfg.Endpoints.Login,
			RegisterPath: cfg.Endpoints.Register,
			Post:         client.Post,
			Persist:      c.persistSession,
			Allow:        allow,
			IsRejected:   isAuthRejection,
			Now:          b.now,
			Warn:         b.warn,
		},
		Social: flows.SocialDeps{
			ExchangePath: cfg.Endpoints.SocialExchange,
			Scope:        cfg.Social.Scope,
			IsInstalled:  isInstalled,
			Authorize:    authorize,
			NewState:     uuid.NewString,
			Post:         client.Post,
			Persist:      c.persistSession,
			IsRejected:   isAuthRejection,
			Now:          b.now,
			Warn:         b.warn,
		},
		Reset: flows.ResetDeps{
			RequestPath: cfg.Endpoints.ResetRequest,
			ConfirmPath: cfg.Endpoints.ResetConfirm,
			Post:        client.Post,
			Persist:     c.persistSession,
			Allow:       allow,
			IsRejected:  isAuthRejection,
			Now:         b.now,
			Warn:        b.warn,
		},
	})

	return c, nil
}

// isAuthRejection classifies a request-layer error as a server-side
// rejection (bad credentials, invalid code) rather than a transport failure.
func isAuthRejection(err error) bool {
	if errors.Is(err, httpc.ErrUnauthorized) {
		return true
	}
	var statusErr *httpc.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 400 && statusErr.Status < 500
	}
	return false
}
