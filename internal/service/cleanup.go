package service

import (
	"context"
	"log"
	"sync"
	"time"

	"tycoon-engine/internal/repository"
)

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// InviteTTL is the age after which unanswered invitations are deleted.
	// Default: 24 hours
	InviteTTL time.Duration

	// CleanupInterval is how often the cleanup runs.
	// Default: 10 minutes
	CleanupInterval time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		InviteTTL:       24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// CleanupScheduler periodically deletes expired duel invitations.
type CleanupScheduler struct {
	repo      repository.InviteRepository
	config    CleanupConfig
	now       func() time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(repo repository.InviteRepository, config CleanupConfig) *CleanupScheduler {
	def := DefaultCleanupConfig()
	if config.InviteTTL == 0 {
		config.InviteTTL = def.InviteTTL
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	return &CleanupScheduler{
		repo:   repo,
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler. The first run happens immediately.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CleanupInterval)
	s.mu.Unlock()

	log.Printf("[CleanupScheduler] Started - Interval: %v, Invite TTL: %v",
		s.config.CleanupInterval, s.config.InviteTTL)

	s.wg.Add(1)
	go s.run()
}

// run is the main cleanup loop.
func (s *CleanupScheduler) run() {
	defer s.wg.Done()
	s.runCleanup()
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			log.Printf("[CleanupScheduler] Stopped")
			return
		}
	}
}

// runCleanup performs the actual cleanup.
func (s *CleanupScheduler) runCleanup() {
	deleted, err := s.RunNow()
	if err != nil {
		log.Printf("[CleanupScheduler] Error during cleanup: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[CleanupScheduler] Cleaned up %d expired invites", deleted)
	}
}

// Stop stops the cleanup scheduler and waits for a running cleanup to finish.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// RunNow triggers an immediate cleanup run.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.config.InviteTTL).UnixMilli()
	return s.repo.DeleteInvitesBefore(ctx, cutoff)
}
