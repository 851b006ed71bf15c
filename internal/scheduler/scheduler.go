package scheduler

import (
	"context"
	"sync"
	"time"

	"rivulet/internal/logger"
)

// Refresher is whatever needs periodic refreshing, typically the local
// adapter's feed refresh.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

type Scheduler struct {
	refresher  Refresher
	interval   time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc // cancels the current refresh
	mu         sync.Mutex         // protects cancelFunc
}

func New(refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Info("scheduler started",
		"module", "scheduler",
		"action", "refresh",
		"resource", "feed",
		"result", "ok",
		"interval_ms", s.interval.Milliseconds())
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logger.Info("scheduler stopped",
		"module", "scheduler",
		"action", "refresh",
		"resource", "feed",
		"result", "ok")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)

	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelFunc = nil
		s.mu.Unlock()
	}()

	if err := s.refresher.RefreshAll(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Warn("scheduled refresh cancelled",
				"module", "scheduler",
				"action", "refresh",
				"resource", "feed",
				"result", "cancelled")
			return
		}
		logger.Error("scheduled refresh failed",
			"module", "scheduler",
			"action", "refresh",
			"resource", "feed",
			"result", "failed",
			"error", err)
		return
	}
	logger.Debug("scheduled refresh completed",
		"module", "scheduler",
		"action", "refresh",
		"resource", "feed",
		"result", "ok")
}
