package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// defaultRefreshSpec fires just after local midnight, when the backend has
// generated the new day's content.
const defaultRefreshSpec = "1 0 * * *"

// SchedulerConfig configures the background daily refresh.
type SchedulerConfig struct {
	Repo *Repository
	// Spec is a cron expression in the local timezone. Defaults to one
	// minute past midnight.
	Spec string
	// Timeout bounds each refresh attempt.
	Timeout time.Duration
	// OnRefresh observes each attempt's outcome.
	OnRefresh func(err error)
	Warn      func(format string, args ...any)
}

// Scheduler force-refreshes the daily snapshot across the midnight rollover
// so the first morning read is already warm. Optional; the repository's
// date check keeps correctness without it.
type Scheduler struct {
	cfg  SchedulerConfig
	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewScheduler validates wiring and returns a stopped scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Repo == nil {
		return nil, errors.New("cache: scheduler repository required")
	}
	if cfg.Spec == "" {
		cfg.Spec = defaultRefreshSpec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scheduler{cfg: cfg}, nil
}

// Start begins firing refreshes. Starting twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithLocation(time.Local))
	if _, err := c.AddFunc(s.cfg.Spec, s.refresh); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	return nil
}

// Stop halts scheduling. Idempotent; a refresh already in flight finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	_, err := s.cfg.Repo.FetchDailyLogs(ctx, true)
	if err != nil && s.cfg.Warn != nil {
		s.cfg.Warn("cache: scheduled refresh failed: %v", err)
	}
	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(err)
	}
}
