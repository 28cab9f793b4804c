package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoImporter is returned by Proceed when the session has no Importer.
var ErrNoImporter = errors.New("no importer configured")

// Handoff is what the importer receives on a successful Proceed.
type Handoff struct {
	SessionID string
	// Mapping is header to field ID. Ignored headers are omitted.
	Mapping map[string]string
	Fields  []TargetField
	Table   SourceTable
}

// Importer persists a reconciled table. Errors are returned to the caller of
// Proceed unchanged apart from wrapping.
type Importer interface {
	Import(ctx context.Context, h Handoff) error
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(ctx context.Context, h Handoff) error

// Import implements Importer.
func (f ImporterFunc) Import(ctx context.Context, h Handoff) error { return f(ctx, h) }

// ProceedResult is the outcome of Proceed. When Missing is non-empty the
// import was blocked and nothing was handed off.
type ProceedResult struct {
	Missing   []TargetField
	HandedOff bool
	Mapping   map[string]string
}

// Blocked reports whether required fields kept the import from proceeding.
func (r ProceedResult) Blocked() bool { return len(r.Missing) > 0 }

// ComputeMissingRequired returns the required fields that no non-ignored
// column is matched to, in schema order. A field matched only by ignored
// columns is missing.
func ComputeMissingRequired(fields []TargetField, assignment map[string]string, ignored map[string]bool) []TargetField {
	satisfied := make(map[string]bool)
	for h, id := range assignment {
		if !ignored[h] {
			satisfied[id] = true
		}
	}

	var missing []TargetField
	for _, f := range fields {
		if f.Required && !satisfied[f.ID] {
			missing = append(missing, f)
		}
	}
	return missing
}

// MissingRequired applies ComputeMissingRequired to the session state.
func (s *Session) MissingRequired() []TargetField {
	return ComputeMissingRequired(s.fields, s.assignment, s.ignored)
}

// Mapping returns the header to field ID pairs that would be handed off:
// the assignment with ignored headers removed.
func (s *Session) Mapping() map[string]string {
	out := make(map[string]string, len(s.assignment))
	for h, id := range s.assignment {
		if !s.ignored[h] {
			out[h] = id
		}
	}
	return out
}

// Proceed runs the completeness gate. If required fields are missing it
// returns them and hands off nothing. Otherwise it hands the mapping and
// the source table to the importer and marks the session completed.
func (s *Session) Proceed(ctx context.Context) (ProceedResult, error) {
	if err := s.requireNoConflict("Proceed"); err != nil {
		return ProceedResult{}, err
	}

	if missing := s.MissingRequired(); len(missing) > 0 {
		s.logger.Info("import blocked by missing required fields",
			"session", s.id,
			"missing", len(missing))
		return ProceedResult{Missing: missing}, nil
	}

	if s.importer == nil {
		return ProceedResult{}, ErrNoImporter
	}

	mapping := s.Mapping()
	h := Handoff{
		SessionID: s.id,
		Mapping:   mapping,
		Fields:    s.Fields(),
		Table:     s.table,
	}
	if err := s.importer.Import(ctx, h); err != nil {
		return ProceedResult{}, fmt.Errorf("import failed: %w", err)
	}

	s.phase = PhaseCompleted
	s.mode = Idle{}
	s.nav.Stop()
	s.logger.Info("import handed off",
		"session", s.id,
		"file", s.table.FileName,
		"columns", len(mapping))

	return ProceedResult{HandedOff: true, Mapping: mapping}, nil
}
