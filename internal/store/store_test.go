package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// backends returns one of each Store that can run without external services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	mem, err := Open(context.Background(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	t.Cleanup(func() {
		sqlite.Close()
		mem.Close()
	})
	return map[string]Store{"sqlite": sqlite, "memory": mem}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "searchHistory", []byte(`["周易"]`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "searchHistory", []byte(`["论语","周易"]`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, "searchHistory")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `["论语","周易"]` {
				t.Errorf("Get = %s", got)
			}
		})
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Remove(ctx, "never-set"); err != nil {
				t.Fatalf("Remove(absent) error = %v", err)
			}
			if err := s.Set(ctx, "streak", []byte("1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			for i := 0; i < 2; i++ {
				if err := s.Remove(ctx, "streak"); err != nil {
					t.Fatalf("Remove #%d: %v", i, err)
				}
			}
			if _, err := s.Get(ctx, "streak"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Remove error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSQLiteStore_Count(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, k := range []string{"a", "b", "a"} {
		if err := s.Set(ctx, k, []byte("1")); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %s", got)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "etcd"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(etcd) error = %v, want ErrUnknownBackend", err)
	}
}

func TestNewRedisStore_RequiresAddress(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "", "pavilion:"); err == nil {
		t.Error("expected error for empty address")
	}
}
