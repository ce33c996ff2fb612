package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/sacbeh/gatehouse/internal/metrics"
	"github.com/sacbeh/gatehouse/internal/repositories"
	"github.com/sacbeh/gatehouse/internal/storage"
)

// Sweeper periodically deactivates expired sessions. Rows are flipped to
// inactive rather than deleted so the session history stays queryable.
type Sweeper struct {
	store    storage.Connector
	sessions *repositories.SessionRepository
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a session sweeper
func NewSweeper(store storage.Connector, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		sessions: repositories.NewSessionRepository(store),
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep and blocks until Stop is called or the
// context is cancelled, so callers run it in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("session sweeper context cancelled")
			return
		}
	}
}

// runSweep deactivates every session whose expiry has passed
func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	swept, err := s.sessions.DeactivateExpired(sweepCtx, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", slog.Any("error", err))
		return
	}

	metrics.ObserveDBStats(s.store.Stats())

	if swept > 0 {
		metrics.SessionsSwept.Add(float64(swept))
		s.logger.Info("expired sessions deactivated", slog.Int64("swept", swept))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
