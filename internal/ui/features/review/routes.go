// Package review provides the web review surface for one reconciliation
// session: the column strip, field picker, conflict panel and import button.
package review

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the review feature.
func SetupRoutes(router chi.Router, h *Handlers) error {
	router.Route("/review/{id}", func(r chi.Router) {
		r.Get("/", h.ReviewPage)
		r.Get("/updates", h.ReviewUpdates)

		r.Post("/columns/{col}/change", h.Change)
		r.Post("/columns/{col}/ignore", h.Ignore)
		r.Post("/columns/{col}/unassign", h.Unassign)
		r.Post("/columns/{col}/select", h.Select)
		r.Post("/assign/{field}", h.Assign)
		r.Post("/done", h.Done)
		r.Post("/resolve", h.Resolve)
		r.Post("/cancel", h.Cancel)
		r.Post("/reset", h.Reset)
		r.Post("/proceed", h.Proceed)

		r.Post("/viewport/scroll", h.Scroll)
		r.Post("/viewport/layout", h.Layout)
		r.Post("/jump/{dir}", h.Jump)
	})
	return nil
}
