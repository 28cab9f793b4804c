package home

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 32 << 20

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	registry     *live.Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	inbox        string
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance. inbox is the watched upload
// directory, or "" when watching is off.
func NewHandlers(registry *live.Registry, sessionStore sessions.Store, notify *notifier.Notifier, inbox string, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		inbox:        inbox,
		isDev:        isDev,
		logger:       logger,
	}
}

// HomePage renders the session list.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.buildHomeData(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	common.RenderHTML(w, http.StatusOK, homePage(data, h.isDev))
}

// HomePageUpdates is the long-lived SSE endpoint for the home page. It
// re-renders the session list whenever any session changes.
func (h *Handlers) HomePageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(notifier.All)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			data, err := h.buildHomeData(r)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(common.Templ(sessionList(data))); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) buildHomeData(r *http.Request) (HomeData, error) {
	eng := h.registry.Engine()
	records, err := eng.Sessions("")
	if err != nil {
		return HomeData{}, err
	}

	data := HomeData{
		SchemaName:  eng.Schema().Name,
		Inbox:       h.inbox,
		LastSession: common.LastSession(h.sessionStore, r),
	}
	for _, rec := range records {
		data.Sessions = append(data.Sessions, SessionRow{
			ID:        rec.ID,
			FileName:  rec.FileName,
			Phase:     string(rec.Phase),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return data, nil
}

// Upload starts a session for an uploaded file and redirects to its review
// page.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Errorf("no file uploaded: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	name := filepath.Base(header.Filename)
	res, err := source.Decode(name, raw, h.registry.Engine().SourceOptions())
	if err != nil {
		h.renderError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	for _, warn := range res.Warnings {
		h.logger.Warn("decode warning", "file", name, "row", warn.Row, "message", warn.Message)
	}

	ls, err := h.registry.Start(res)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	http.Redirect(w, r, "/review/"+ls.ID(), http.StatusSeeOther)
}

// DeleteSession removes a saved session and returns to the list.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.Delete(id); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	data, buildErr := h.buildHomeData(r)
	if buildErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	data.Error = err.Error()
	common.RenderHTML(w, status, homePage(data, h.isDev))
}
