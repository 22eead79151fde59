package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/definitions", handler.CreateDefinition)
		r.Get("/definitions", handler.ListDefinitions)
		r.Get("/definitions/{definitionID}", handler.GetDefinition)
		r.Post("/instances", handler.CreateInstance)
		r.Get("/instances", handler.ListInstances)
		r.Get("/instances/{instanceID}", handler.GetInstance)
	})

	return &Server{Router: r}
}
