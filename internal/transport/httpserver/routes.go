package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"threegen/internal/config"
	"threegen/internal/transport/httpserver/handler"
	authmw "threegen/internal/transport/httpserver/middleware"
	"threegen/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, profiles authmw.ProfileRecorder, sessions authmw.SessionCache, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Common.Health)

		auth := authmw.NewSupabaseAuth(cfg.Supabase, profiles, sessions, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/auth/me", handlers.Common.AuthMe)

			r.Get("/members", handlers.Members.ListMembers)
			r.Get("/members/{id}", handlers.Members.GetMember)
			r.Put("/members/{id}", handlers.Members.PutMember)
			r.Delete("/members/{id}", handlers.Members.DeleteMember)
		})
	})

	return r
}
