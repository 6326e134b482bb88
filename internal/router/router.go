package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/chat"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
)

// Config contains the handlers the router mounts.
type Config struct {
	ChatHandler  *chat.Handler
	PlaceHandler *place.Handler
	// HealthCheck reports readiness; nil means always ready.
	HealthCheck func(r *http.Request) error
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied
// before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(req); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", cfg.ChatHandler.Query)
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Get("/chat/stream", cfg.ChatHandler.ChatStream)
		r.Post("/chat/stream", cfg.ChatHandler.ChatStream)
		r.Get("/chat/history", cfg.ChatHandler.GetHistory)
		r.Delete("/chat/history", cfg.ChatHandler.ClearHistory)
		r.Get("/chat/logs", cfg.ChatHandler.GetChatLogs)
		r.Post("/feedback", cfg.ChatHandler.SaveFeedback)
		r.Get("/dataset/summary", cfg.ChatHandler.DatasetSummary)

		r.Route("/places", func(r chi.Router) {
			r.Get("/", cfg.PlaceHandler.Search)
			r.Get("/nearby", cfg.PlaceHandler.Nearby)
			r.Get("/main", cfg.PlaceHandler.MainAttractions)
			r.Get("/category", cfg.PlaceHandler.ByCategory)
		})
	})

	return r
}
