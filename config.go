package sessionkit

import (
	"errors"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config defines the coordinator's tunables. Instances are cloned on
// [Builder.WithConfig] and treated as immutable after [Builder.Build].
type Config struct {
	Endpoints   EndpointsConfig   `yaml:"endpoints"`
	Storage     StorageConfig     `yaml:"storage"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Cache       CacheConfig       `yaml:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Events      EventsConfig      `yaml:"events"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Social      SocialConfig      `yaml:"social"`
}

/*
====================================
ENDPOINTS
====================================
*/

// EndpointsConfig names the backend paths. Login, register, refresh, social
// exchange, and the reset pair are auth-exempt: the request layer never
// attaches a bearer token to them and never refresh-retries them.
type EndpointsConfig struct {
	Login          string `yaml:"login"           env:"SK_ENDPOINT_LOGIN"           env-default:"/auth/login"`
	Register       string `yaml:"register"        env:"SK_ENDPOINT_REGISTER"        env-default:"/auth/register"`
	Refresh        string `yaml:"refresh"         env:"SK_ENDPOINT_REFRESH"         env-default:"/auth/refresh"`
	SocialExchange string `yaml:"social_exchange" env:"SK_ENDPOINT_SOCIAL_EXCHANGE" env-default:"/auth/social/exchange"`
	ResetRequest   string `yaml:"reset_request"   env:"SK_ENDPOINT_RESET_REQUEST"   env-default:"/auth/password-reset/request"`
	ResetConfirm   string `yaml:"reset_confirm"   env:"SK_ENDPOINT_RESET_CONFIRM"   env-default:"/auth/password-reset/confirm"`
	DailyLogs      string `yaml:"daily_logs"      env:"SK_ENDPOINT_DAILY_LOGS"      env-default:"/learning/daily"`
	Logout         string `yaml:"logout"          env:"SK_ENDPOINT_LOGOUT"          env-default:"/auth/logout"`
}

/*
====================================
STORAGE LAYOUT
====================================
*/

// StorageConfig names the persistence keys.
type StorageConfig struct {
	AccessTokenKey    string `yaml:"access_token_key"    env:"SK_KEY_ACCESS_TOKEN"   env-default:"auth_access_token"`
	RefreshTokenKey   string `yaml:"refresh_token_key"   env:"SK_KEY_REFRESH_TOKEN"  env-default:"auth_refresh_token"`
	UserProfileKey    string `yaml:"user_profile_key"    env:"SK_KEY_USER_PROFILE"   env-default:"auth_user_profile"`
	PolicyAcceptedKey string `yaml:"policy_accepted_key" env:"SK_KEY_POLICY_ACCEPT"  env-default:"policy_accepted"`
	DailyPrefix       string `yaml:"daily_prefix"        env:"SK_KEY_DAILY_PREFIX"   env-default:"daily_logs:"`
	LastFetchedPrefix string `yaml:"last_fetched_prefix" env:"SK_KEY_FETCHED_PREFIX" env-default:"daily_logs_fetched_at:"`
}

/*
====================================
TOKENS
====================================
*/

// TokensConfig carries the fixed application key the refresh-token sealing
// key is derived from. Minimum 16 bytes.
type TokensConfig struct {
	EncryptionKey KeyBytes `yaml:"-" env:"SK_TOKEN_ENCRYPTION_KEY"`
}

// KeyBytes holds raw key material. It reads from the environment as the
// literal string bytes, not as a delimited list.
type KeyBytes []byte

// SetValue implements cleanenv's setter interface.
func (k *KeyBytes) SetValue(s string) error {
	*k = KeyBytes(s)
	return nil
}

/*
====================================
COORDINATOR
====================================
*/

// CoordinatorConfig tunes the state machine timers.
type CoordinatorConfig struct {
	// DebounceWindow suppresses repeated reconciliation passes: a pass
	// within this window of the previous one is skipped to avoid redirect
	// flicker from rapid re-renders.
	DebounceWindow time.Duration `yaml:"debounce_window" env:"SK_DEBOUNCE_WINDOW" env-default:"5s"`
	// RedirectGrace is the cancellable delay before committing to the
	// unauthenticated redirect, absorbing auth flows racing the initial
	// check.
	RedirectGrace time.Duration `yaml:"redirect_grace" env:"SK_REDIRECT_GRACE" env-default:"3s"`
	// RequirePolicyConsent gates startup on the persisted policy flag.
	RequirePolicyConsent bool `yaml:"require_policy_consent" env:"SK_REQUIRE_POLICY_CONSENT" env-default:"false"`
}

/*
====================================
CACHE
====================================
*/

// CacheConfig tunes the daily-content cache.
type CacheConfig struct {
	// AutoRefresh starts the midnight-rollover scheduler.
	AutoRefresh bool `yaml:"auto_refresh" env:"SK_CACHE_AUTO_REFRESH" env-default:"false"`
	// RefreshSpec is the scheduler's cron expression (local timezone).
	RefreshSpec string `yaml:"refresh_spec" env:"SK_CACHE_REFRESH_SPEC" env-default:"1 0 * * *"`
}

/*
====================================
RATE LIMIT
====================================
*/

// RateLimitConfig throttles local credential submissions per identifier.
type RateLimitConfig struct {
	Enabled         bool `yaml:"enabled"           env:"SK_RATELIMIT_ENABLED"    env-default:"true"`
	LoginsPerMinute int  `yaml:"logins_per_minute" env:"SK_RATELIMIT_PER_MINUTE" env-default:"10"`
	Burst           int  `yaml:"burst"             env:"SK_RATELIMIT_BURST"      env-default:"5"`
}

/*
====================================
EVENTS
====================================
*/

// EventsConfig controls the session-event dispatcher.
type EventsConfig struct {
	Enabled    bool `yaml:"enabled"      env:"SK_EVENTS_ENABLED"   env-default:"false"`
	BufferSize int  `yaml:"buffer_size"  env:"SK_EVENTS_BUFFER"    env-default:"256"`
	DropIfFull bool `yaml:"drop_if_full" env:"SK_EVENTS_DROP_FULL" env-default:"true"`
}

/*
====================================
METRICS
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"SK_METRICS_ENABLED" env-default:"false"`
}

/*
====================================
SOCIAL
====================================
*/

// SocialConfig tunes the social-login exchange.
type SocialConfig struct {
	Scope string `yaml:"scope" env:"SK_SOCIAL_SCOPE" env-default:"profile"`
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointsConfig{
			Login:          "/auth/login",
			Register:       "/auth/register",
			Refresh:        "/auth/refresh",
			SocialExchange: "/auth/social/exchange",
			ResetRequest:   "/auth/password-reset/request",
			ResetConfirm:   "/auth/password-reset/confirm",
			DailyLogs:      "/learning/daily",
			Logout:         "/auth/logout",
		},
		Storage: StorageConfig{
			AccessTokenKey:    "auth_access_token",
			RefreshTokenKey:   "auth_refresh_token",
			UserProfileKey:    "auth_user_profile",
			PolicyAcceptedKey: "policy_accepted",
			DailyPrefix:       "daily_logs:",
			LastFetchedPrefix: "daily_logs_fetched_at:",
		},
		Coordinator: CoordinatorConfig{
			DebounceWindow: 5 * time.Second,
			RedirectGrace:  3 * time.Second,
		},
		Cache: CacheConfig{
			RefreshSpec: "1 0 * * *",
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			LoginsPerMinute: 10,
			Burst:           5,
		},
		Events: EventsConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Social: SocialConfig{
			Scope: "profile",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Tokens.EncryptionKey = append(KeyBytes(nil), cfg.Tokens.EncryptionKey...)
	return out
}

// Validate checks internal consistency. Called by [Builder.Build].
func (c *Config) Validate() error {
	if len(c.Tokens.EncryptionKey) < 16 {
		return errors.New("Tokens.EncryptionKey must be at least 16 bytes")
	}
	if c.Coordinator.DebounceWindow <= 0 {
		return errors.New("Coordinator.DebounceWindow must be positive")
	}
	if c.Coordinator.RedirectGrace <= 0 {
		return errors.New("Coordinator.RedirectGrace must be positive")
	}
	if c.Storage.AccessTokenKey == "" || c.Storage.RefreshTokenKey == "" ||
		c.Storage.UserProfileKey == "" {
		return errors.New("Storage keys must be set")
	}
	if c.Storage.DailyPrefix == c.Storage.LastFetchedPrefix {
		return errors.New("Storage.DailyPrefix and Storage.LastFetchedPrefix must differ")
	}
	if c.Endpoints.Login == "" || c.Endpoints.Refresh == "" {
		return errors.New("Endpoints.Login and Endpoints.Refresh must be set")
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events.BufferSize must be positive when events are enabled")
	}
	return nil
}

// LoadConfig reads a YAML config file with environment overrides. An empty
// path reads from the environment alone, over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// exemptPaths lists the endpoints the request layer must never attach a
// bearer token to nor refresh-retry.
func (c *Config) exemptPaths() []string {
	return []string{
		c.Endpoints.Login,
		c.Endpoints.Register,
		c.Endpoints.Refresh,
		c.Endpoints.SocialExchange,
		c.Endpoints.ResetRequest,
		c.Endpoints.ResetConfirm,
	}
}
