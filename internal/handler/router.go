package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Auth           *AuthHandler
	Tasks          *TaskHandler
	Tokens         TokenVerifier
	Logger         *zap.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens, cfg.Logger))
		r.Get("/", cfg.Tasks.List)
		r.Post("/", cfg.Tasks.Create)
		r.Get("/stats", cfg.Tasks.Stats)
		r.Put("/{id}", cfg.Tasks.Update)
		r.Delete("/{id}", cfg.Tasks.Delete)
		r.Patch("/{id}/toggle", cfg.Tasks.Toggle)
	})

	return r
}
