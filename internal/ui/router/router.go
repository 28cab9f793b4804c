// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	homeFeature "github.com/leapstack-labs/leapimport/internal/ui/features/home"
	importsFeature "github.com/leapstack-labs/leapimport/internal/ui/features/imports"
	reviewFeature "github.com/leapstack-labs/leapimport/internal/ui/features/review"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
	"github.com/leapstack-labs/leapimport/internal/ui/resources"
)

// Deps are the collaborators feature handlers share.
type Deps struct {
	Registry     *live.Registry
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	// ColumnWidth is the review card width in pixels
	ColumnWidth int
	// Inbox is the watched upload directory, shown on the home page
	Inbox  string
	IsDev  bool
	Logger *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, d Deps) error {
	if d.IsDev {
		setupReload(router)
	}

	router.Handle(resources.Prefix+"*", resources.Handler())

	home := homeFeature.NewHandlers(d.Registry, d.SessionStore, d.Notifier, d.Inbox, d.IsDev, d.Logger)
	if err := homeFeature.SetupRoutes(router, home); err != nil {
		return err
	}

	review := reviewFeature.NewHandlers(d.Registry, d.SessionStore, d.Notifier, d.ColumnWidth, d.IsDev, d.Logger)
	if err := reviewFeature.SetupRoutes(router, review); err != nil {
		return err
	}

	imports := importsFeature.NewHandlers(d.Registry, d.Notifier, d.IsDev)
	if err := importsFeature.SetupRoutes(router, imports); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
