package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hyperengineering/pavilion/internal/session"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
	"github.com/hyperengineering/pavilion/internal/validation"
)

// GatewayInfo describes the configured AI backend for health output.
type GatewayInfo interface {
	Provider() string
	Model() string
}

// Options configures a Handler.
type Options struct {
	Sessions *session.Manager
	Store    store.Store
	Gateway  GatewayInfo
	// GatewayErr is set when the gateway is disabled.
	GatewayErr error
	APIKey     string
	Version    string
	// RateLimitRPS of 0 disables AI rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler implements the API handlers.
type Handler struct {
	sessions   *session.Manager
	store      store.Store
	gateway    GatewayInfo
	gatewayErr error
	apiKey     string
	version    string
	limiter    *RateLimiter
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		sessions:   opts.Sessions,
		store:      opts.Store,
		gateway:    opts.Gateway,
		gatewayErr: opts.GatewayErr,
		apiKey:     opts.APIKey,
		version:    opts.Version,
		limiter:    NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Get(r.Context(), "health/probe"); err != nil && !errors.Is(err, store.ErrNotFound) {
		WriteProblem(w, r, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	resp := types.HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Provider: h.gateway.Provider(),
		Model:    h.gateway.Model(),
		Gateway:  "ready",
		Store:    h.store.Backend(),
	}
	if h.gatewayErr != nil {
		resp.Gateway = "disabled"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Categories handles GET /api/v1/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.Categories())
}

// Frames handles GET /api/v1/frames
func (h *Handler) Frames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustControllerFromContext(r.Context()).Frames())
}

// Motto handles GET /api/v1/motto
func (h *Handler) Motto(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustControllerFromContext(r.Context()).DailyMotto())
}

// Catalog handles GET /api/v1/catalog?category=
// A category parameter also becomes the session's active filter.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	ctrl := MustControllerFromContext(r.Context())
	if category := r.URL.Query().Get("category"); category != "" {
		if verr := validation.ValidateCategory("category", category); verr != nil {
			WriteProblemWithErrors(w, r, "Invalid category", []validation.ValidationError{*verr})
			return
		}
		if err := ctrl.SetCategory(category); err != nil {
			MapError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, types.CatalogResponse{
		Category: ctrl.State().ActiveCategory,
		Books:    ctrl.Catalog(),
	})
}

// State handles GET /api/v1/state
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustControllerFromContext(r.Context()).State())
}

// SetView handles PUT /api/v1/view
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req types.ViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateViewRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}
	ctrl := MustControllerFromContext(r.Context())
	if err := ctrl.SetView(req.View); err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

// SetCategory handles PUT /api/v1/category
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req types.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateCategory("category", req.Category); verr != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*verr})
		return
	}
	ctrl := MustControllerFromContext(r.Context())
	if err := ctrl.SetCategory(req.Category); err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

// OpenReader handles POST /api/v1/reader
func (h *Handler) OpenReader(w http.ResponseWriter, r *http.Request) {
	var req types.OpenReaderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateOpenReaderRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	ctrl := MustControllerFromContext(r.Context())
	var (
		state types.ReaderState
		err   error
	)
	if req.Book != nil {
		state, err = ctrl.SelectBook(r.Context(), *req.Book)
	} else {
		state, err = ctrl.OpenBook(r.Context(), req.BookID)
	}
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CloseReader handles DELETE /api/v1/reader
func (h *Handler) CloseReader(w http.ResponseWriter, r *http.Request) {
	MustControllerFromContext(r.Context()).CloseReader()
	w.WriteHeader(http.StatusNoContent)
}

// AdvanceProgress handles POST /api/v1/reader/progress
func (h *Handler) AdvanceProgress(w http.ResponseWriter, r *http.Request) {
	state, err := MustControllerFromContext(r.Context()).AdvanceProgress()
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ToggleAssistant handles POST /api/v1/reader/assistant
func (h *Handler) ToggleAssistant(w http.ResponseWriter, r *http.Request) {
	state, err := MustControllerFromContext(r.Context()).ToggleAssistant()
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ReadingHistory handles GET /api/v1/history/reading
func (h *Handler) ReadingHistory(w http.ResponseWriter, r *http.Request) {
	books, err := MustControllerFromContext(r.Context()).ReadingHistory(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// ClearReadingHistory handles DELETE /api/v1/history/reading
func (h *Handler) ClearReadingHistory(w http.ResponseWriter, r *http.Request) {
	if err := MustControllerFromContext(r.Context()).ClearReadingHistory(r.Context()); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchHistory handles GET /api/v1/history/search
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	terms, err := MustControllerFromContext(r.Context()).SearchHistory(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

// ClearSearchHistory handles DELETE /api/v1/history/search
func (h *Handler) ClearSearchHistory(w http.ResponseWriter, r *http.Request) {
	if err := MustControllerFromContext(r.Context()).ClearSearchHistory(r.Context()); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/v1/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateSearchRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}
	result, err := MustControllerFromContext(r.Context()).Search(r.Context(), req.Query)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchSession handles GET /api/v1/search
func (h *Handler) SearchSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustControllerFromContext(r.Context()).SearchSession())
}

// Transcript handles GET /api/v1/chat
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustControllerFromContext(r.Context()).Transcript())
}

// Chat handles POST /api/v1/chat
// On gateway failure the apology turn is already in the transcript.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateChatRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}
	resp, err := MustControllerFromContext(r.Context()).Chat(r.Context(), req.Message)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Quiz handles GET /api/v1/quiz
func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	state, err := MustControllerFromContext(r.Context()).LoadQuiz(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// AnswerQuiz handles POST /api/v1/quiz/answer
func (h *Handler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req types.QuizAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateQuizAnswer(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}
	state, err := MustControllerFromContext(r.Context()).AnswerQuiz(req.Option)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Wisdom handles GET /api/v1/wisdom
func (h *Handler) Wisdom(w http.ResponseWriter, r *http.Request) {
	resp, err := MustControllerFromContext(r.Context()).LoadWisdom(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Guide handles GET /api/v1/guide?title=
func (h *Handler) Guide(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if errs := validation.ValidateTitle(title); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}
	resp, err := MustControllerFromContext(r.Context()).Guide(r.Context(), title)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckInStatus handles GET /api/v1/checkin
func (h *Handler) CheckInStatus(w http.ResponseWriter, r *http.Request) {
	status, err := MustControllerFromContext(r.Context()).CheckInStatus(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// CheckIn handles POST /api/v1/checkin
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	status, err := MustControllerFromContext(r.Context()).CheckIn(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Sessions handles GET /api/v1/sessions
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}
