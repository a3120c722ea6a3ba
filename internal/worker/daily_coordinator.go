package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/pavilion/internal/parser"
	"github.com/hyperengineering/pavilion/internal/types"
)

// DailyWarmer loads the day's shared AI content into the cache.
// Implemented by daily.Service.
type DailyWarmer interface {
	Wisdom(ctx context.Context, day time.Time) (parser.Result[types.WisdomQuote], error)
	Quiz(ctx context.Context, day time.Time) (parser.Result[types.QuizItem], error)
}

// DailyCoordinator keeps today's wisdom card and quiz cached so the first
// reader of the day does not wait on the AI service.
type DailyCoordinator struct {
	daily    DailyWarmer
	interval time.Duration
	now      func() time.Time
}

// NewDailyCoordinator creates a coordinator that warms every interval.
func NewDailyCoordinator(daily DailyWarmer, interval time.Duration) *DailyCoordinator {
	return &DailyCoordinator{daily: daily, interval: interval, now: time.Now}
}

// Run warms the cache immediately, then on every tick. It blocks until ctx
// is cancelled.
func (c *DailyCoordinator) Run(ctx context.Context) {
	slog.Info("daily coordinator started",
		"component", "worker",
		"worker", "daily-coordinator",
		"interval", c.interval.String(),
	)

	c.warmAndLog(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("daily coordinator stopped",
				"component", "worker",
				"worker", "daily-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.warmAndLog(ctx)
		}
	}
}

func (c *DailyCoordinator) warmAndLog(ctx context.Context) {
	start := time.Now()
	day := c.now()
	if err := c.Warm(ctx, day); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("daily warm-up incomplete",
			"component", "worker",
			"worker", "daily-coordinator",
			"date", day.Format(types.DateLayout),
			"error", err,
		)
		return
	}
	slog.Info("daily content warmed",
		"component", "worker",
		"worker", "daily-coordinator",
		"date", day.Format(types.DateLayout),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Warm fetches the wisdom card and the quiz for day concurrently. Content
// already cached for day is not fetched again. The first failure is
// returned after both loads finish.
func (c *DailyCoordinator) Warm(ctx context.Context, day time.Time) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.daily.Wisdom(ctx, day)
		return err
	})
	g.Go(func() error {
		_, err := c.daily.Quiz(ctx, day)
		return err
	})
	return g.Wait()
}
