package reconcile

import (
	"fmt"
	"log/slog"
	"sort"
)

// Session is one reconciliation of a source table against a target schema.
// It owns the assignment, the ignore set, the interaction mode and the
// viewport navigator. Create one with NewSession or Restore.
type Session struct {
	id     string
	fields []TargetField
	table  SourceTable

	fieldIdx map[string]int
	colIdx   map[string]int

	assignment map[string]string
	ignored    map[string]bool
	mode       Mode
	phase      Phase

	importer Importer
	logger   *slog.Logger
	nav      *Navigator
}

// NewSession validates the inputs and bootstraps the assignment.
func NewSession(fields []TargetField, table SourceTable, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s, err := newSession(fields, table, o)
	if err != nil {
		return nil, err
	}

	s.assignment = Bootstrap(s.fields, s.table.Columns, o.match)
	s.logger.Debug("bootstrapped session",
		"file", s.table.FileName,
		"columns", len(s.table.Columns),
		"matched", len(s.assignment),
		"fuzzy", o.match.Fuzzy)

	return s, nil
}

func newSession(fields []TargetField, table SourceTable, o *options) (*Session, error) {
	s := &Session{
		id:         o.id,
		fields:     append([]TargetField(nil), fields...),
		table:      table,
		fieldIdx:   make(map[string]int, len(fields)),
		colIdx:     make(map[string]int, len(table.Columns)),
		assignment: make(map[string]string),
		ignored:    make(map[string]bool),
		mode:       Idle{},
		phase:      PhaseReviewing,
		importer:   o.importer,
		logger:     o.logger,
	}

	for i, f := range s.fields {
		if f.ID == "" {
			return nil, fmt.Errorf("target field %d has an empty id", i)
		}
		if _, dup := s.fieldIdx[f.ID]; dup {
			return nil, fmt.Errorf("duplicate target field id %q", f.ID)
		}
		s.fieldIdx[f.ID] = i
	}

	for i, h := range table.Columns {
		if _, dup := s.colIdx[h]; dup {
			return nil, fmt.Errorf("duplicate source column %q in %s", h, table.FileName)
		}
		s.colIdx[h] = i
	}

	s.nav = newNavigator(s, o)
	return s, nil
}

// ID returns the session identifier, empty unless set with WithID.
func (s *Session) ID() string { return s.id }

// Fields returns the target schema in order.
func (s *Session) Fields() []TargetField {
	return append([]TargetField(nil), s.fields...)
}

// Field returns the target field with the given ID.
func (s *Session) Field(id string) (TargetField, bool) {
	i, ok := s.fieldIdx[id]
	if !ok {
		return TargetField{}, false
	}
	return s.fields[i], true
}

// Table returns the source table.
func (s *Session) Table() SourceTable { return s.table }

// Columns returns the source headers in file order.
func (s *Session) Columns() []string {
	return append([]string(nil), s.table.Columns...)
}

// ColumnIndex returns the file-order position of header.
func (s *Session) ColumnIndex(header string) (int, bool) {
	i, ok := s.colIdx[header]
	return i, ok
}

// Assignment returns a copy of the header to field ID mapping. Unmatched
// headers are absent.
func (s *Session) Assignment() map[string]string {
	out := make(map[string]string, len(s.assignment))
	for h, id := range s.assignment {
		out[h] = id
	}
	return out
}

// Match returns the field ID assigned to header.
func (s *Session) Match(header string) (string, bool) {
	id, ok := s.assignment[header]
	return id, ok
}

// Holder returns the header currently assigned to fieldID.
func (s *Session) Holder(fieldID string) (string, bool) {
	for h, id := range s.assignment {
		if id == fieldID {
			return h, true
		}
	}
	return "", false
}

// IsIgnored reports whether header is in the ignore set.
func (s *Session) IsIgnored(header string) bool { return s.ignored[header] }

// Ignored returns the ignored headers in file order.
func (s *Session) Ignored() []string {
	out := make([]string, 0, len(s.ignored))
	for h := range s.ignored {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return s.colIdx[out[i]] < s.colIdx[out[j]] })
	return out
}

// Mode returns the current interaction mode.
func (s *Session) Mode() Mode { return s.mode }

// ChangingHeader returns the header in change mode, if any.
func (s *Session) ChangingHeader() (string, bool) {
	if m, ok := s.mode.(Changing); ok {
		return m.Header, true
	}
	return "", false
}

// Conflict returns the open duplication conflict, or nil.
func (s *Session) Conflict() *DuplicationConflict {
	if m, ok := s.mode.(ResolvingConflict); ok {
		return m.Conflict
	}
	return nil
}

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Navigator returns the session's viewport navigator.
func (s *Session) Navigator() *Navigator { return s.nav }

// ViewportStats is shorthand for Navigator().Stats().
func (s *Session) ViewportStats() ViewportStats { return s.nav.Stats() }

// Summary counts matched, unmatched and ignored columns. Ignored columns are
// not counted as matched or unmatched.
func (s *Session) Summary() Summary {
	sum := Summary{Columns: len(s.table.Columns)}
	for _, h := range s.table.Columns {
		switch {
		case s.ignored[h]:
			sum.Ignored++
		case s.assignment[h] != "":
			sum.Matched++
		default:
			sum.Unmatched++
		}
	}
	sum.MissingRequired = len(s.MissingRequired())
	return sum
}

func (s *Session) requireReviewing(op string) error {
	if s.phase != PhaseReviewing {
		return invalidState(op, s)
	}
	return nil
}

func (s *Session) requireNoConflict(op string) error {
	if err := s.requireReviewing(op); err != nil {
		return err
	}
	if _, open := s.mode.(ResolvingConflict); open {
		return invalidState(op, s)
	}
	return nil
}

func (s *Session) requireColumn(header string) error {
	if _, ok := s.colIdx[header]; !ok {
		return unknownColumn(header)
	}
	return nil
}

// ToggleIgnore flips header's membership in the ignore set. The header's
// assignment is left as it is. Allowed in any mode.
func (s *Session) ToggleIgnore(header string) error {
	if err := s.requireReviewing("ToggleIgnore"); err != nil {
		return err
	}
	if err := s.requireColumn(header); err != nil {
		return err
	}

	if s.ignored[header] {
		delete(s.ignored, header)
	} else {
		s.ignored[header] = true
	}

	s.nav.InvalidateLayout()
	return nil
}

// EnterChangeMode puts header into change mode, replacing any other
// changing header.
func (s *Session) EnterChangeMode(header string) error {
	if err := s.requireNoConflict("EnterChangeMode"); err != nil {
		return err
	}
	if err := s.requireColumn(header); err != nil {
		return err
	}
	s.mode = Changing{Header: header}
	return nil
}

// ExitChangeMode clears change mode. It is a no-op when idle.
func (s *Session) ExitChangeMode() error {
	if err := s.requireNoConflict("ExitChangeMode"); err != nil {
		return err
	}
	s.mode = Idle{}
	return nil
}

// Unassign clears header's match.
func (s *Session) Unassign(header string) error {
	if err := s.requireNoConflict("Unassign"); err != nil {
		return err
	}
	if err := s.requireColumn(header); err != nil {
		return err
	}

	delete(s.assignment, header)
	s.exitChangeModeFor(header)
	s.nav.InvalidateLayout()
	return nil
}

// Reset clears every match, empties the ignore set and discards change mode
// and any open conflict. It always succeeds.
func (s *Session) Reset() {
	s.assignment = make(map[string]string)
	s.ignored = make(map[string]bool)
	s.mode = Idle{}
	s.nav.InvalidateLayout()
	s.logger.Debug("session reset", "session", s.id)
}

// Close cancels pending viewport timers. The session must not be used after
// Close.
func (s *Session) Close() {
	s.nav.Stop()
}

func (s *Session) exitChangeModeFor(header string) {
	if m, ok := s.mode.(Changing); ok && m.Header == header {
		s.mode = Idle{}
	}
}
