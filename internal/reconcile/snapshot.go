package reconcile

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Mode names used in snapshots.
const (
	modeIdle      = "idle"
	modeChanging  = "changing"
	modeResolving = "resolving_conflict"
)

// Snapshot is the serializable state of a session. Viewport stats are
// derived and not stored; the last sampled geometry is.
type Snapshot struct {
	Version        int                  `json:"version"`
	ID             string               `json:"id,omitempty"`
	Fields         []TargetField        `json:"fields"`
	Table          SourceTable          `json:"table"`
	Assignment     map[string]string    `json:"assignment"`
	Ignored        []string             `json:"ignored"`
	Mode           string               `json:"mode"`
	ChangingHeader string               `json:"changing_header,omitempty"`
	Conflict       *DuplicationConflict `json:"conflict,omitempty"`
	Phase          Phase                `json:"phase"`
	Geometry       *Geometry            `json:"geometry,omitempty"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ID:         s.id,
		Fields:     s.Fields(),
		Table:      s.table,
		Assignment: s.Assignment(),
		Ignored:    s.Ignored(),
		Mode:       modeIdle,
		Phase:      s.phase,
	}

	switch m := s.mode.(type) {
	case Changing:
		snap.Mode = modeChanging
		snap.ChangingHeader = m.Header
	case ResolvingConflict:
		snap.Mode = modeResolving
		c := *m.Conflict
		snap.Conflict = &c
	}

	if g, ok := s.nav.Geometry(); ok {
		snap.Geometry = &g
	}

	return snap
}

// MarshalJSON encodes the session as its snapshot.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Restore rebuilds a session from a snapshot without re-running bootstrap.
// It rejects snapshots that reference unknown columns or fields, that
// assign one field to two columns, or whose open conflict does not match
// the assignment.
func Restore(snap Snapshot, opts ...Option) (*Session, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	o := defaultOptions()
	o.id = snap.ID
	for _, opt := range opts {
		opt(o)
	}

	s, err := newSession(snap.Fields, snap.Table, o)
	if err != nil {
		return nil, err
	}

	holders := make(map[string]string)
	for h, id := range snap.Assignment {
		if err := s.requireColumn(h); err != nil {
			return nil, err
		}
		if _, ok := s.fieldIdx[id]; !ok {
			return nil, unknownField(id)
		}
		if prev, dup := holders[id]; dup {
			return nil, fmt.Errorf("snapshot assigns field %q to both %q and %q", id, prev, h)
		}
		holders[id] = h
		s.assignment[h] = id
	}

	for _, h := range snap.Ignored {
		if err := s.requireColumn(h); err != nil {
			return nil, err
		}
		s.ignored[h] = true
	}

	switch snap.Mode {
	case "", modeIdle:
	case modeChanging:
		if err := s.requireColumn(snap.ChangingHeader); err != nil {
			return nil, err
		}
		s.mode = Changing{Header: snap.ChangingHeader}
	case modeResolving:
		c := snap.Conflict
		if c == nil {
			return nil, fmt.Errorf("snapshot mode %q has no conflict", snap.Mode)
		}
		if err := s.requireColumn(c.HeaderA); err != nil {
			return nil, err
		}
		if err := s.requireColumn(c.HeaderB); err != nil {
			return nil, err
		}
		if _, ok := s.fieldIdx[c.Field.ID]; !ok {
			return nil, unknownField(c.Field.ID)
		}
		if c.HeaderA == c.HeaderB {
			return nil, fmt.Errorf("snapshot conflict on %q names %q twice", c.Field.ID, c.HeaderA)
		}
		if holders[c.Field.ID] != c.HeaderA {
			return nil, fmt.Errorf("snapshot conflict on %q: %q does not hold it", c.Field.ID, c.HeaderA)
		}
		if c.Selected != "" && c.Selected != c.HeaderA && c.Selected != c.HeaderB {
			return nil, fmt.Errorf("snapshot conflict selects %q, which is neither side", c.Selected)
		}
		cc := *c
		s.mode = ResolvingConflict{Conflict: &cc}
	default:
		return nil, fmt.Errorf("unknown snapshot mode %q", snap.Mode)
	}

	if snap.Phase != "" {
		s.phase = snap.Phase
	}
	if snap.Geometry != nil {
		s.nav.pending = *snap.Geometry
		s.nav.sampled = *snap.Geometry
		s.nav.hasSample = true
	}

	return s, nil
}
