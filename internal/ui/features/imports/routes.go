// Package imports provides the import history page.
package imports

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the import history routes.
func SetupRoutes(router chi.Router, h *Handlers) error {
	router.Route("/imports", func(r chi.Router) {
		r.Get("/", h.ImportsPage)
		r.Get("/updates", h.ImportsPageUpdates)
	})
	return nil
}
