package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/report", func(r chi.Router) {
			r.Post("/upload", h.UploadReport)
			r.Post("/reset", h.Reset)
			r.Get("/groups", h.ListGroups)
			r.Get("/groups/{name}/rows", h.GroupRows)
			r.Get("/groups/{name}/export", h.ExportGroup)
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", h.ListDrafts)
			r.Post("/generate", h.GenerateAll)
			r.Post("/generate/{name}", h.GenerateOne)
			r.Get("/{name}", h.GetDraft)
		})

		r.Route("/recipients", func(r chi.Router) {
			r.Get("/", h.ListRecipients)
			r.Get("/{name}", h.GetRecipients)
			r.Put("/{name}", h.SaveRecipients)
			r.Delete("/{name}", h.DeleteRecipients)
		})

		r.Post("/dispatch/{name}", h.Dispatch)
	})

	return r
}
