package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hyperengineering/pavilion/internal/session"
	"github.com/hyperengineering/pavilion/internal/store"
)

const testAPIKey = "test-secret-key-12345"

// mockHandler is a simple handler that records if it was called
func mockHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}), &called
}

// captureLogs routes the default logger into a JSON buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantCalled bool
		wantStatus int
	}{
		{"valid token", "Bearer " + testAPIKey, true, http.StatusOK},
		{"missing header", "", false, http.StatusUnauthorized},
		{"wrong token", "Bearer wrong-token", false, http.StatusUnauthorized},
		{"no bearer prefix", testAPIKey, false, http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + testAPIKey, false, http.StatusUnauthorized},
		{"empty token", "Bearer ", false, http.StatusUnauthorized},
		{"whitespace token", "Bearer    ", false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := mockHandler()
			mw := AuthMiddleware(testAPIKey)(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, req)

			if *called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", *called, tt.wantCalled)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthMiddleware_EmptyKeyDisablesCheck(t *testing.T) {
	handler, called := mockHandler()
	mw := AuthMiddleware("")(handler)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	if !*called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d; want passthrough", *called, w.Code)
	}
}

func TestAuthMiddleware_NoKeyLeak(t *testing.T) {
	logs := captureLogs(t)
	handler, _ := mockHandler()
	mw := AuthMiddleware(testAPIKey)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	if w.Header().Get("Content-Type") != "application/problem+json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if strings.Contains(w.Body.String(), testAPIKey) {
		t.Error("response body contains the API key")
	}
	if strings.Contains(logs.String(), testAPIKey) || strings.Contains(logs.String(), "wrong-token") {
		t.Error("log output contains a token")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := extractBearerToken(req); got != tt.want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !constantTimeEqual("abc", "abc") {
		t.Error("equal strings compared unequal")
	}
	if constantTimeEqual("abc", "abd") || constantTimeEqual("abc", "ab") || constantTimeEqual("", "a") {
		t.Error("unequal strings compared equal")
	}
}

func TestSessionMiddleware(t *testing.T) {
	sessions := session.NewManager(session.Options{KV: store.NewMemoryStore()})

	var gotID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = SessionIDFromContext(r.Context())
		ctrl := MustControllerFromContext(r.Context())
		if ctrl.State().Session != gotID {
			t.Errorf("controller session = %q, want %q", ctrl.State().Session, gotID)
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := SessionMiddleware(sessions)(inner)

	t.Run("default", func(t *testing.T) {
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK || gotID != session.DefaultID {
			t.Errorf("status = %d, id = %q", w.Code, gotID)
		}
	})

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(SessionHeader, "tablet-2")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusOK || gotID != "tablet-2" {
			t.Errorf("status = %d, id = %q", w.Code, gotID)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(SessionHeader, "../etc")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	if sessions.Len() != 2 {
		t.Errorf("sessions.Len() = %d, want 2", sessions.Len())
	}
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	handler, called := mockHandler()
	w := httptest.NewRecorder()
	RecoveryMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !*called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d", *called, w.Code)
	}
}

func TestRecoveryMiddleware_PanicNoLeak(t *testing.T) {
	logs := captureLogs(t)
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret internal state")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(panicHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret internal state") {
		t.Error("panic value leaked to client")
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Error("panic was not logged")
	}
}

func TestGetRequestID(t *testing.T) {
	var got string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	})
	chiMiddleware.RequestID(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == "" {
		t.Error("GetRequestID() = empty, want chi request ID")
	}
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("GetRequestID() without middleware = %q, want empty", id)
	}
}

func TestLogLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{204, slog.LevelInfo},
		{304, slog.LevelInfo},
		{400, slog.LevelWarn},
		{429, slog.LevelWarn},
		{500, slog.LevelError},
		{502, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevelForStatus(tt.status); got != tt.want {
			t.Errorf("logLevelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	logs := captureLogs(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := chiMiddleware.RequestID(LoggingMiddleware(inner))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.RemoteAddr = "203.0.113.9:4711"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(logs.String(), testAPIKey) {
		t.Fatal("log output contains the API key")
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, logs.String())
	}
	want := map[string]any{
		"msg":         "http request",
		"level":       "WARN",
		"component":   "api",
		"method":      "POST",
		"path":        "/api/v1/chat",
		"status":      float64(http.StatusTeapot),
		"remote_addr": "203.0.113.9:4711",
		"session_id":  session.DefaultID,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("request_id missing from log entry")
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_ms missing from log entry")
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request should exceed the burst")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}
}

func TestRateLimiter_ZeroRateDisables(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestRateLimiter_Middleware429(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler, _ := mockHandler()
	mw := rl.Middleware(handler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
		req.Header.Set(SessionHeader, "s1")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", w.Code)
	}
	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if w.Header().Get("Content-Type") != "application/problem+json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestRateLimiter_SessionRotationDoesNotBypass(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler, _ := mockHandler()
	mw := rl.Middleware(handler)

	send := func(sessionID, remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
		req.Header.Set(SessionHeader, sessionID)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("s1", "203.0.113.9:4000"); code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", code)
	}
	if code := send("s2", "203.0.113.9:4001"); code != http.StatusTooManyRequests {
		t.Errorf("new session from same host = %d, want 429", code)
	}
	if code := send("s1", "198.51.100.7:4000"); code != http.StatusOK {
		t.Errorf("other host = %d, want 200", code)
	}
	if n := rl.Len(); n != 2 {
		t.Errorf("tracked clients = %d, want 2", n)
	}
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		rl.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	if n := rl.Len(); n != 50 {
		t.Fatalf("tracked clients = %d, want 50", n)
	}

	now = now.Add(limiterIdleTTL + time.Second)
	rl.Allow("10.0.1.1")
	if n := rl.Len(); n != 1 {
		t.Errorf("tracked clients after idle period = %d, want 1", n)
	}
}
