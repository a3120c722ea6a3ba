// Package prefs persists the reader's preferences (reading history, search
// history and the check-in streak) on top of a key-value store.
//
// The store is a dumb persistence layer: it bounds and de-duplicates the
// history lists, but the once-per-day check-in rule belongs to the caller.
// Malformed stored data is treated as absent.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
)

// Well-known keys, relative to the Store's namespace.
const (
	KeyReadingHistory  = "readingHistory"
	KeySearchHistory   = "searchHistory"
	KeyLastCheckInDate = "lastCheckInDate"
	KeyStreak          = "streak"
)

const (
	// MaxReadingHistory bounds the reading history list.
	MaxReadingHistory = 6
	// MaxSearchHistory bounds the search history list.
	MaxSearchHistory = 10
)

// Store reads and writes preference records under a key namespace.
// RecordReading and RecordSearch are serialized so concurrent records on
// one Store never drop each other's entries.
type Store struct {
	kv        store.Store
	namespace string

	mu sync.Mutex
}

// New returns a Store that prefixes every key with namespace.
func New(kv store.Store, namespace string) *Store {
	return &Store{kv: kv, namespace: namespace}
}

func (s *Store) key(k string) string {
	return s.namespace + k
}

// readJSON decodes key into v. It reports false when the key is absent or
// its contents are malformed; only backend failures are returned as errors.
func (s *Store) readJSON(ctx context.Context, k string, v any) (bool, error) {
	raw, err := s.kv.Get(ctx, s.key(k))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("discarding malformed preference",
			"component", "prefs",
			"key", s.key(k),
			"error", err,
		)
		return false, nil
	}
	return true, nil
}

func (s *Store) writeJSON(ctx context.Context, k string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	if err := s.kv.Set(ctx, s.key(k), raw); err != nil {
		return fmt.Errorf("write %s: %w", k, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.kv.Remove(ctx, s.key(k)); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}

// ReadingHistory returns the persisted reading history, most recent first.
func (s *Store) ReadingHistory(ctx context.Context) ([]types.Book, error) {
	var books []types.Book
	ok, err := s.readJSON(ctx, KeyReadingHistory, &books)
	if err != nil || !ok || books == nil {
		return []types.Book{}, err
	}
	return books, nil
}

// SetReadingHistory replaces the reading history.
func (s *Store) SetReadingHistory(ctx context.Context, books []types.Book) error {
	return s.writeJSON(ctx, KeyReadingHistory, books)
}

// RecordReading moves book to the front of the reading history and persists it.
func (s *Store) RecordReading(ctx context.Context, book types.Book) ([]types.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.ReadingHistory(ctx)
	if err != nil {
		return nil, err
	}
	next := PushReading(current, book)
	if err := s.SetReadingHistory(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ClearReadingHistory removes the reading history entirely.
func (s *Store) ClearReadingHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, KeyReadingHistory)
}

// SearchHistory returns the persisted search terms, most recent first.
func (s *Store) SearchHistory(ctx context.Context) ([]string, error) {
	var terms []string
	ok, err := s.readJSON(ctx, KeySearchHistory, &terms)
	if err != nil || !ok || terms == nil {
		return []string{}, err
	}
	return terms, nil
}

// SetSearchHistory replaces the search history.
func (s *Store) SetSearchHistory(ctx context.Context, terms []string) error {
	return s.writeJSON(ctx, KeySearchHistory, terms)
}

// RecordSearch moves term to the front of the search history and persists it.
func (s *Store) RecordSearch(ctx context.Context, term string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.SearchHistory(ctx)
	if err != nil {
		return nil, err
	}
	next := PushSearch(current, term)
	if err := s.SetSearchHistory(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ClearSearchHistory removes the search history entirely.
func (s *Store) ClearSearchHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, KeySearchHistory)
}

// CheckIn returns the last check-in date ("" if never) and the streak.
func (s *Store) CheckIn(ctx context.Context) (string, int, error) {
	var date string
	if _, err := s.readJSON(ctx, KeyLastCheckInDate, &date); err != nil {
		return "", 0, err
	}
	var streak int
	if _, err := s.readJSON(ctx, KeyStreak, &streak); err != nil {
		return "", 0, err
	}
	if streak < 0 {
		streak = 0
	}
	return date, streak, nil
}

// SetCheckIn records the check-in date and streak.
func (s *Store) SetCheckIn(ctx context.Context, date string, streak int) error {
	if err := s.writeJSON(ctx, KeyLastCheckInDate, date); err != nil {
		return err
	}
	return s.writeJSON(ctx, KeyStreak, streak)
}

// ClearCheckIn removes the check-in date and streak.
func (s *Store) ClearCheckIn(ctx context.Context) error {
	return s.remove(ctx, KeyLastCheckInDate, KeyStreak)
}

// PushReading returns list with book at the front, any earlier entry with the
// same ID dropped, truncated to MaxReadingHistory. list is not modified.
func PushReading(list []types.Book, book types.Book) []types.Book {
	out := make([]types.Book, 0, MaxReadingHistory)
	out = append(out, book)
	seen := map[string]bool{book.ID: true}
	for _, b := range list {
		if len(out) == MaxReadingHistory {
			break
		}
		if !seen[b.ID] {
			seen[b.ID] = true
			out = append(out, b)
		}
	}
	return out
}

// PushSearch returns list with term at the front, any exact duplicate dropped,
// truncated to MaxSearchHistory. list is not modified.
func PushSearch(list []string, term string) []string {
	out := make([]string, 0, MaxSearchHistory)
	out = append(out, term)
	seen := map[string]bool{term: true}
	for _, t := range list {
		if len(out) == MaxSearchHistory {
			break
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
