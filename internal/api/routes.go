package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Get("/categories", h.Categories)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Get("/sessions", h.Sessions)

			r.Group(func(r chi.Router) {
				r.Use(SessionMiddleware(h.sessions))

				r.Get("/catalog", h.Catalog)
				r.Get("/frames", h.Frames)
				r.Get("/motto", h.Motto)
				r.Get("/state", h.State)
				r.Put("/view", h.SetView)
				r.Put("/category", h.SetCategory)

				r.Post("/reader", h.OpenReader)
				r.Delete("/reader", h.CloseReader)
				r.Post("/reader/progress", h.AdvanceProgress)
				r.Post("/reader/assistant", h.ToggleAssistant)

				r.Get("/history/reading", h.ReadingHistory)
				r.Delete("/history/reading", h.ClearReadingHistory)
				r.Get("/history/search", h.SearchHistory)
				r.Delete("/history/search", h.ClearSearchHistory)

				r.Get("/search", h.SearchSession)
				r.Get("/chat", h.Transcript)
				r.Post("/quiz/answer", h.AnswerQuiz)
				r.Get("/checkin", h.CheckInStatus)
				r.Post("/checkin", h.CheckIn)

				// Routes that call the AI service are rate limited
				r.Group(func(r chi.Router) {
					r.Use(h.limiter.Middleware)
					r.Post("/search", h.Search)
					r.Post("/chat", h.Chat)
					r.Get("/quiz", h.Quiz)
					r.Get("/wisdom", h.Wisdom)
					r.Get("/guide", h.Guide)
				})
			})
		})
	})

	return r
}
