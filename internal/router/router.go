package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"walkgen-backend/internal/handlers"
	"walkgen-backend/internal/middleware"
)

func New(
	analyzeHandler *handlers.AnalyzeHandler,
	browseHandler *handlers.BrowseHandler,
	commentHandler *handlers.CommentHandler,
	corsOrigins string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(corsOrigins))

	// Analysis rate limiter (10 req/min per IP) — each new analysis costs
	// real upstream API money
	analyzeLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {

		// ──── Health & Stats ────
		r.Get("/health", browseHandler.Health)

		// ──── Analysis ────
		r.Group(func(r chi.Router) {
			r.Use(analyzeLimiter.Middleware)
			r.Post("/analyze", analyzeHandler.Analyze)
		})
		r.Get("/status/{id}", analyzeHandler.Status)
		r.Get("/walkthrough/{id}", analyzeHandler.GetWalkthrough)

		// ──── Browse / Discover ────
		r.Route("/browse", func(r chi.Router) {
			r.Get("/recent", browseHandler.Recent)
			r.Get("/popular", browseHandler.Popular)
			r.Get("/search", browseHandler.Search)
		})

		// ──── Catalog search ────
		r.Get("/search/videos", browseHandler.SearchVideos)

		// ──── Comments & Reactions ────
		r.Route("/comments", func(r chi.Router) {
			r.Get("/{videoID}", commentHandler.List)
			r.Post("/{videoID}", commentHandler.Create)
			r.Post("/reactions/{id}", commentHandler.ToggleReaction)
		})
	})

	return r
}
