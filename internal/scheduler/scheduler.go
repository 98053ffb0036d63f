// Package scheduler keeps merged odds warm by refreshing configured sports
// on an interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Refresher refreshes the cached merged odds of one sport
type Refresher interface {
	RefreshMerged(ctx context.Context, sport, apiKey string) error
}

// Config configures the prefetch scheduler
type Config struct {
	Sports     []string
	Interval   time.Duration
	APIKey     string
	JobTimeout time.Duration
}

// Scheduler runs one singleton job per sport
type Scheduler struct {
	cron      *gocron.Scheduler
	refresher Refresher
	cfg       Config
	logger    zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new prefetch scheduler
func NewScheduler(refresher Refresher, cfg Config, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("prefetch interval must be positive")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("prefetch requires a server api key")
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = cfg.Interval
	}

	cron := gocron.NewScheduler(time.UTC)
	// a slow fetch never overlaps the next run for the same sport
	cron.SingletonModeAll()

	return &Scheduler{
		cron:      cron,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start schedules a refresh job for every sport. The first run is immediate.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Sports) == 0 {
		return nil
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, sport := range s.cfg.Sports {
		if _, err := s.cron.Every(s.cfg.Interval).Tag(sport).Do(s.refresh, sport); err != nil {
			return fmt.Errorf("schedule %s: %w", sport, err)
		}
		s.logger.Info().Str("sport", sport).Dur("interval", s.cfg.Interval).Msg("✓ Scheduled prefetch")
	}

	s.cron.StartAsync()
	return nil
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.cron.Stop()
}

// Jobs returns the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Jobs())
}

func (s *Scheduler) refresh(sport string) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	if parent == nil || parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.RefreshMerged(ctx, sport, s.cfg.APIKey); err != nil {
		s.logger.Error().Err(err).Str("sport", sport).Msg("prefetch failed")
		return
	}

	s.logger.Info().Str("sport", sport).Dur("duration", time.Since(start)).Msg("prefetch complete")
}
