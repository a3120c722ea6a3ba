package worker

import (
	"context"
	"log/slog"
	"time"
)

// IdleEvictor drops sessions that have not been used for a while.
// Implemented by session.Manager.
type IdleEvictor interface {
	EvictIdle(idle time.Duration) int
}

// SessionSweeper periodically evicts idle portal sessions. Evicted sessions
// lose their in-memory view state; stored preferences are kept.
type SessionSweeper struct {
	sessions IdleEvictor
	interval time.Duration
	idle     time.Duration
}

// NewSessionSweeper creates a sweeper that runs every interval and evicts
// sessions idle for longer than idle.
func NewSessionSweeper(sessions IdleEvictor, interval, idle time.Duration) *SessionSweeper {
	return &SessionSweeper{sessions: sessions, interval: interval, idle: idle}
}

// Run blocks until ctx is cancelled. The first sweep happens after one interval.
func (s *SessionSweeper) Run(ctx context.Context) {
	slog.Info("session sweeper started",
		"component", "worker",
		"worker", "session-sweeper",
		"interval", s.interval.String(),
		"idle_timeout", s.idle.String(),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped",
				"component", "worker",
				"worker", "session-sweeper",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts idle sessions once and returns how many were dropped.
func (s *SessionSweeper) Sweep() int {
	n := s.sessions.EvictIdle(s.idle)
	if n > 0 {
		slog.Info("idle sessions evicted",
			"component", "worker",
			"worker", "session-sweeper",
			"evicted", n,
		)
	}
	return n
}
