package service

import (
	"context"
	"sync"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// SweeperService periodically deletes expired reservations so abandoned
// keys do not accumulate. Only reserved rows past reserved_until are
// touched; processing and terminal rows are left alone. Runs are idempotent
// and safe to overlap across instances.
type SweeperService struct {
	repo     IdempotencyKeyRepository
	enabled  bool
	schedule string
	interval time.Duration
	batch    int

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	cron      *cron.Cron
}

func NewSweeperService(repo IdempotencyKeyRepository, cfg *config.Config) *SweeperService {
	enabled := true
	schedule := ""
	interval := 60 * time.Second
	batch := 500
	if cfg != nil {
		enabled = cfg.Sweeper.Enabled
		schedule = cfg.Sweeper.Schedule
		if cfg.Sweeper.IntervalSeconds > 0 {
			interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
		}
		if cfg.Sweeper.BatchSize > 0 {
			batch = cfg.Sweeper.BatchSize
		}
	}
	return &SweeperService{
		repo:     repo,
		enabled:  enabled,
		schedule: schedule,
		interval: interval,
		batch:    batch,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop. A cron schedule from config
// takes precedence; otherwise a plain fixed-interval ticker runs.
func (s *SweeperService) Start() {
	if s == nil || s.repo == nil || !s.enabled {
		return
	}
	s.startOnce.Do(func() {
		if s.schedule != "" {
			c := cron.New()
			if _, err := c.AddFunc(s.schedule, func() { s.sweepOnce() }); err == nil {
				s.cron = c
				c.Start()
				logger.Printf("service.sweeper", "[Sweeper] started schedule=%s batch=%d", s.schedule, s.batch)
				return
			}
			logger.Printf("service.sweeper", "[Sweeper] invalid schedule %q, falling back to interval", s.schedule)
		}
		logger.Printf("service.sweeper", "[Sweeper] started interval=%s batch=%d", s.interval, s.batch)
		go s.runLoop()
	})
}

func (s *SweeperService) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.cron != nil {
			s.cron.Stop()
		}
		logger.Printf("service.sweeper", "[Sweeper] stopped")
	})
}

func (s *SweeperService) runLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep once right away so a restart clears any backlog.
	s.sweepOnce()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopCh:
			return
		}
	}
}

func (s *SweeperService) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		logger.Printf("service.sweeper", "[Sweeper] sweep failed err=%v", err)
	}
}

// Sweep deletes one batch of expired reservations and returns how many rows
// went away.
func (s *SweeperService) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpiredReserved(ctx, time.Now(), s.batch)
	if err != nil {
		recordStoreUnavailable("sweep")
		return 0, ErrStoreUnavailable.WithCause(err)
	}
	recordSwept(deleted)
	if deleted > 0 {
		logger.Printf("service.sweeper", "[Sweeper] deleted expired reservations count=%d", deleted)
	}
	return deleted, nil
}
