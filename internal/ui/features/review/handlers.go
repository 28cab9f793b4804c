package review

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/state"
	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
)

// viewportSignals are the strip measurements the page sends with scroll and
// layout events, in pixels.
type viewportSignals struct {
	ScrollOffset float64 `json:"scrollOffset"`
	VisibleWidth float64 `json:"visibleWidth"`
}

// Handlers provides HTTP handlers for the review feature.
type Handlers struct {
	registry     *live.Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	columnWidth  int
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance. columnWidth is the card width
// in pixels.
func NewHandlers(registry *live.Registry, sessionStore sessions.Store, notify *notifier.Notifier, columnWidth int, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		columnWidth:  columnWidth,
		isDev:        isDev,
		logger:       logger,
	}
}

func (h *Handlers) view(id string) (ViewData, error) {
	var v ViewData
	err := h.registry.View(id, func(s *reconcile.Session) error {
		v = buildView(s, h.columnWidth)
		return nil
	})
	return v, err
}

// ReviewPage renders the review page with the current session state.
func (h *Handlers) ReviewPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := h.view(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, state.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := common.RememberSession(h.sessionStore, w, r, id); err != nil {
		h.logger.Warn("failed to save browser session", "error", err)
	}
	common.RenderHTML(w, http.StatusOK, reviewPage(v, h.isDev))
}

// ReviewUpdates is the long-lived SSE endpoint for the review page. It
// pushes the whole review app whenever the session or its viewport stats
// change.
func (h *Handlers) ReviewUpdates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(id)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.patch(sse, id, nil); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// patch sends the review app, with actionErr shown as a banner.
func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, id string, actionErr error) error {
	v, err := h.view(id)
	if err != nil {
		return err
	}
	if actionErr != nil {
		v.Error = actionErr.Error()
	}
	return sse.PatchElementTempl(common.Templ(reviewApp(v)))
}

// act applies f to the session and responds with the updated review app.
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, f func(*reconcile.Session) error) {
	id := chi.URLParam(r, "id")
	err := h.registry.Update(id, f)
	if err != nil {
		h.logger.Debug("review action rejected", "session", id, "path", r.URL.Path, "error", err)
	}

	sse := datastar.NewSSE(w, r)
	if err := h.patch(sse, id, err); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// column resolves the {col} URL parameter to a header.
func column(r *http.Request, s *reconcile.Session) (string, error) {
	raw := chi.URLParam(r, "col")
	idx, err := strconv.Atoi(raw)
	cols := s.Columns()
	if err != nil || idx < 0 || idx >= len(cols) {
		return "", fmt.Errorf("%w: column %s", reconcile.ErrUnknownColumn, raw)
	}
	return cols[idx], nil
}

// Change enters change mode for a column.
func (h *Handlers) Change(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error {
		header, err := column(r, s)
		if err != nil {
			return err
		}
		return s.EnterChangeMode(header)
	})
}

// Ignore toggles whether a column is ignored.
func (h *Handlers) Ignore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error {
		header, err := column(r, s)
		if err != nil {
			return err
		}
		return s.ToggleIgnore(header)
	})
}

// Unassign removes a column's match.
func (h *Handlers) Unassign(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error {
		header, err := column(r, s)
		if err != nil {
			return err
		}
		return s.Unassign(header)
	})
}

// Select picks which side of the open conflict keeps the field.
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error {
		header, err := column(r, s)
		if err != nil {
			return err
		}
		return s.SelectHeaderToResolve(header)
	})
}

// Assign assigns a field to the column in change mode. A conflict is not an
// error: the page renders the conflict panel.
func (h *Handlers) Assign(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "field")
	h.act(w, r, func(s *reconcile.Session) error {
		header, ok := s.ChangingHeader()
		if !ok {
			return &reconcile.InvalidStateError{Op: "Assign", State: s.Mode().String()}
		}
		_, err := s.TryAssign(header, fieldID)
		return err
	})
}

// Done leaves change mode.
func (h *Handlers) Done(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error { return s.ExitChangeMode() })
}

// Resolve commits the conflict selection.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error { return s.Resolve() })
}

// Cancel abandons the open conflict.
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error { return s.Cancel() })
}

// Reset clears every match and ignore.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *reconcile.Session) error {
		s.Reset()
		return nil
	})
}

// errBlocked reports the required fields that keep an import from running.
type errBlocked []reconcile.TargetField

func (e errBlocked) Error() string {
	labels := make([]string, len(e))
	for i, f := range e {
		labels[i] = f.Label()
	}
	return "Match required fields first: " + strings.Join(labels, ", ")
}

// Proceed runs the completeness gate and imports the session.
func (h *Handlers) Proceed(w http.ResponseWriter, r *http.Request) {
	eng := h.registry.Engine()
	h.act(w, r, func(s *reconcile.Session) error {
		res, err := eng.Proceed(r.Context(), s)
		if err != nil {
			return err
		}
		if res.Blocked() {
			return errBlocked(res.Missing)
		}
		return nil
	})
}

func (h *Handlers) report(w http.ResponseWriter, r *http.Request, layout bool) {
	var sig viewportSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	g := reconcile.Geometry{
		ScrollOffset: sig.ScrollOffset,
		VisibleWidth: sig.VisibleWidth,
		ColumnWidth:  float64(h.columnWidth),
	}
	err := h.registry.View(id, func(s *reconcile.Session) error {
		if layout {
			s.Navigator().ReportLayout(g)
		} else {
			s.Navigator().ReportScroll(g)
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	// Stats are pushed on the updates stream once the navigator settles.
	w.WriteHeader(http.StatusNoContent)
}

// Scroll records a scroll of the column strip.
func (h *Handlers) Scroll(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, false)
}

// Layout records the strip geometry after load or resize.
func (h *Handlers) Layout(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, true)
}

// Jump scrolls the strip to the nearest unmatched column out of view.
func (h *Handlers) Jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dir := chi.URLParam(r, "dir")

	var (
		offset float64
		ok     bool
	)
	err := h.registry.View(id, func(s *reconcile.Session) error {
		switch dir {
		case "left":
			offset, ok = s.Navigator().JumpLeft()
		case "right":
			offset, ok = s.Navigator().JumpRight()
		default:
			return fmt.Errorf("unknown direction %q", dir)
		}
		return nil
	})

	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if !ok {
		return
	}
	script := fmt.Sprintf("document.getElementById('strip').scrollLeft = %d", int(offset))
	if err := sse.ExecuteScript(script); err != nil {
		_ = sse.ConsoleError(err)
	}
}
