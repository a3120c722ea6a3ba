// Package daily caches the wisdom card and quiz question for each calendar
// day so every session sees the same content and the gateway is asked once.
package daily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyperengineering/pavilion/internal/parser"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
)

// Content kinds, used in cache keys.
const (
	KindWisdom = "wisdom"
	KindQuiz   = "quiz"
)

// Source produces raw daily content.
type Source interface {
	DailyWisdom(ctx context.Context) (string, error)
	DailyQuiz(ctx context.Context) (string, error)
}

// Service loads daily content through a KV cache.
type Service struct {
	kv    store.Store
	src   Source
	group singleflight.Group
}

// New creates a Service. Cached entries live in kv under daily/<kind>/<date>.
func New(kv store.Store, src Source) *Service {
	return &Service{kv: kv, src: src}
}

// Key returns the cache key for kind on day.
func Key(kind string, day time.Time) string {
	return "daily/" + kind + "/" + day.Format(types.DateLayout)
}

// Wisdom returns the wisdom card for day. On gateway failure the result
// is the fallback quote and the error is returned alongside it.
func (s *Service) Wisdom(ctx context.Context, day time.Time) (parser.Result[types.WisdomQuote], error) {
	return load(ctx, s, KindWisdom, day, s.src.DailyWisdom, parser.DecodeWisdom, parser.FallbackWisdom)
}

// Quiz returns the quiz question for day, with the same failure rules as Wisdom.
func (s *Service) Quiz(ctx context.Context, day time.Time) (parser.Result[types.QuizItem], error) {
	return load(ctx, s, KindQuiz, day, s.src.DailyQuiz, parser.DecodeQuiz, parser.FallbackQuiz)
}

// Forget drops both cached entries for day.
func (s *Service) Forget(ctx context.Context, day time.Time) error {
	for _, kind := range []string{KindWisdom, KindQuiz} {
		if err := s.kv.Remove(ctx, Key(kind, day)); err != nil {
			return fmt.Errorf("forget %s: %w", kind, err)
		}
	}
	return nil
}

func load[T any](
	ctx context.Context,
	s *Service,
	kind string,
	day time.Time,
	fetch func(context.Context) (string, error),
	decode func(string) parser.Result[T],
	fallback func() T,
) (parser.Result[T], error) {
	key := Key(kind, day)
	if v, ok := cached[T](ctx, s.kv, key); ok {
		return parser.Result[T]{Value: v, Outcome: parser.Parsed}, nil
	}

	out, err, shared := s.group.Do(key, func() (any, error) {
		// A flight that finished between the check above and here has
		// already filled the cache.
		if v, ok := cached[T](ctx, s.kv, key); ok {
			return parser.Result[T]{Value: v, Outcome: parser.Parsed}, nil
		}
		raw, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		res := decode(raw)
		if !res.IsFallback() {
			if err := put(ctx, s.kv, key, res.Value); err != nil {
				slog.Warn("failed to cache daily content",
					"component", "daily",
					"key", key,
					"error", err,
				)
			}
		}
		return res, nil
	})
	if err != nil {
		return parser.Result[T]{Value: fallback(), Outcome: parser.Fallback, Reason: err}, fmt.Errorf("daily %s: %w", kind, err)
	}
	res := out.(parser.Result[T])
	slog.Debug("daily content loaded",
		"component", "daily",
		"key", key,
		"outcome", res.Outcome.String(),
		"shared", shared,
	)
	return res, nil
}

func cached[T any](ctx context.Context, kv store.Store, key string) (T, bool) {
	var v T
	data, err := kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("daily cache read failed",
				"component", "daily",
				"key", key,
				"error", err,
			)
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("discarding malformed daily cache entry",
			"component", "daily",
			"key", key,
			"error", err,
		)
		return v, false
	}
	return v, true
}

func put(ctx context.Context, kv store.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, data)
}
