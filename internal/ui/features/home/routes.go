// Package home provides the landing page: saved sessions, the upload form
// and the inbox status.
package home

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(router chi.Router, h *Handlers) error {
	router.Get("/", h.HomePage)
	router.Get("/updates", h.HomePageUpdates)
	router.Post("/upload", h.Upload)
	router.Post("/sessions/{id}/delete", h.DeleteSession)
	return nil
}
