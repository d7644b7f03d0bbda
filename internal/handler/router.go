package handler

import (
	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires the public and admin routes
func NewRouter(h *Handler, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	// Admin routes
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.HandleFunc("/rent-engine/run", h.RunRentEngine).Methods("POST")
	return r
}
