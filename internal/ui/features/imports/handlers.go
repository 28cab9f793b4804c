package imports

import (
	"net/http"
	"sort"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapimport/internal/state"
	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
)

// historyLimit bounds how many imports the page lists.
const historyLimit = 50

// Handlers provides HTTP handlers for the import history feature.
type Handlers struct {
	registry *live.Registry
	notifier *notifier.Notifier
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *live.Registry, notify *notifier.Notifier, isDev bool) *Handlers {
	return &Handlers{
		registry: registry,
		notifier: notify,
		isDev:    isDev,
	}
}

// ImportsPage renders the import history.
func (h *Handlers) ImportsPage(w http.ResponseWriter, _ *http.Request) {
	rows, err := h.buildRows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	common.RenderHTML(w, http.StatusOK, importsPage(rows, h.isDev))
}

// ImportsPageUpdates is the long-lived SSE endpoint for the history page.
// Any session change may be an import, so it listens to every topic.
func (h *Handlers) ImportsPageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(notifier.All)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			rows, err := h.buildRows()
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(common.Templ(importList(rows))); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) buildRows() ([]ImportRow, error) {
	records, err := h.registry.Engine().Store().ListImports("")
	if err != nil {
		return nil, err
	}
	if len(records) > historyLimit {
		records = records[:historyLimit]
	}

	rows := make([]ImportRow, len(records))
	for i, rec := range records {
		rows[i] = convertImport(rec)
	}
	return rows, nil
}

// convertImport flattens a record for display. Mapping pairs are sorted by
// header so the page is stable across renders.
func convertImport(rec *state.ImportRecord) ImportRow {
	pairs := make([]string, 0, len(rec.Mapping))
	for header, field := range rec.Mapping {
		pairs = append(pairs, header+" → "+field)
	}
	sort.Strings(pairs)

	return ImportRow{
		SessionID:  rec.SessionID,
		FileName:   rec.FileName,
		Target:     rec.TargetType + ":" + rec.TargetTable,
		RowCount:   rec.RowCount,
		Mapping:    strings.Join(pairs, ", "),
		ImportedAt: rec.ImportedAt,
	}
}
