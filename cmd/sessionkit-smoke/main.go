// Command sessionkit-smoke drives a scripted auth scenario against a real
// backend to validate the full session lifecycle end to end: login, token
// persistence, daily-content caching, refresh recovery, and logout.
//
// Steps are read from a YAML scenario file:
//
//	steps:
//	  - op: login
//	    username: alice
//	    password: correct-horse
//	  - op: fetch
//	  - op: fetch        # second fetch must hit the cache
//	  - op: logout
//
// Run:
//
//	sessionkit-smoke --base-url https://api.example.com --scenario smoke.yaml
//
// Persistence defaults to in-memory. Pass --redis-addr (or REDIS_ADDR) to
// exercise the Redis store, or --sqlite to exercise the on-disk store.
// SK_TOKEN_ENCRYPTION_KEY (or the config file) must supply the token
// encryption key.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sessionkit "github.com/loqui-app/sessionkit"
	"github.com/loqui-app/sessionkit/httpc"
	"github.com/loqui-app/sessionkit/kv"
)

type scenario struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	Op          string `yaml:"op"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	PhoneNumber string `yaml:"phone_number"`
	Force       bool   `yaml:"force"`
}

type options struct {
	baseURL    string
	configPath string
	scenario   string
	envFile    string
	redisAddr  string
	sqlitePath string
	timeout    time.Duration
}

func main() {
	opts := options{}

	root := &cobra.Command{
		Use:           "sessionkit-smoke",
		Short:         "Drive a scripted session lifecycle against a backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	root.Flags().StringVar(&opts.baseURL, "base-url", "", "backend base URL (required)")
	root.Flags().StringVar(&opts.configPath, "config", "", "optional sessionkit config YAML")
	root.Flags().StringVar(&opts.scenario, "scenario", "", "scenario YAML file (required)")
	root.Flags().StringVar(&opts.envFile, "env-file", "", "optional .env file loaded before config")
	root.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; REDIS_ADDR env is the fallback")
	root.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "sqlite database path for persistence")
	root.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-step timeout")

	if err := root.Execute(); err != nil {
		slog.Error("smoke run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if opts.baseURL == "" {
		return errors.New("--base-url is required")
	}
	if opts.scenario == "" {
		return errors.New("--scenario is required")
	}

	raw, err := os.ReadFile(opts.scenario)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	var scen scenario
	if err := yaml.Unmarshal(raw, &scen); err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}
	if len(scen.Steps) == 0 {
		return errors.New("scenario has no steps")
	}

	cfg, err := sessionkit.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, cleanup, err := buildStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	coord, err := sessionkit.New().
		WithConfig(cfg).
		WithStorage(store).
		WithTransport(httpc.NewHTTPTransport(opts.baseURL, nil)).
		WithMetricsEnabled(true).
		WithWarnFunc(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		}).
		Build()
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}
	defer coord.Close()

	phase, err := coord.Start(ctx)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info("coordinator started", "phase", phase.String())

	for i, s := range scen.Steps {
		stepCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		err := runStep(stepCtx, coord, s, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
	}

	snap := coord.MetricsSnapshot()
	logger.Info("scenario complete",
		"cache_hits", snap.Counters[sessionkit.MetricCacheHit],
		"cache_misses", snap.Counters[sessionkit.MetricCacheMiss],
		"refreshes", snap.Counters[sessionkit.MetricRefreshSuccess],
		"retries", snap.Counters[sessionkit.MetricRetryAfterRefresh],
	)
	return nil
}

func runStep(ctx context.Context, coord *sessionkit.Coordinator, s step, logger *slog.Logger) error {
	switch s.Op {
	case "login":
		result, err := coord.Login(ctx, s.Username, s.Password)
		if err != nil {
			return err
		}
		logger.Info("logged in", "user", result.User.ID)
	case "register":
		result, err := coord.Register(ctx, s.Username, s.PhoneNumber, s.Password)
		if err != nil {
			return err
		}
		logger.Info("registered", "user", result.User.ID)
	case "fetch":
		snap, err := coord.FetchDailyLogs(ctx, s.Force)
		if err != nil {
			return err
		}
		logger.Info("fetched daily logs", "count", len(snap.Logs))
	case "check":
		phase, err := coord.CheckSession(ctx)
		if err != nil {
			return err
		}
		logger.Info("session checked", "phase", phase.String())
	case "logout":
		if err := coord.Logout(ctx); err != nil {
			return err
		}
		logger.Info("logged out")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

func buildStore(opts options) (kv.Store, func(), error) {
	if opts.sqlitePath != "" {
		db, err := kv.OpenSQLite(opts.sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	}

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return kv.NewRedis(client, "sk"), func() { _ = client.Close() }, nil
	}

	return kv.NewMemory(), func() {}, nil
}
