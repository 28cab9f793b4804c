package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func contactFields() []TargetField {
	return []TargetField{
		{ID: "email", DisplayName: "Email", Description: "Primary email address", Required: true},
		{ID: "phone", DisplayName: "Phone", Description: "Contact phone number"},
		{ID: "name", DisplayName: "Full Name", Aliases: []string{"customer"}},
	}
}

func contactTable(columns ...string) SourceTable {
	preview := make(map[string][]string, len(columns))
	for _, c := range columns {
		preview[c] = []string{c + "-1", c + "-2"}
	}
	return SourceTable{FileName: "contacts.csv", Columns: columns, Preview: preview}
}

// newTestSession builds a session on a manual clock.
func newTestSession(t *testing.T, fields []TargetField, table SourceTable, opts ...Option) (*Session, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	s, err := NewSession(fields, table, append([]Option{WithScheduler(sched)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, sched
}

// requireUnique fails if any field is assigned to more than one column.
func requireUnique(t *testing.T, s *Session) {
	t.Helper()
	seen := make(map[string]string)
	for h, id := range s.Assignment() {
		prev, dup := seen[id]
		require.Falsef(t, dup, "field %q held by %q and %q", id, prev, h)
		seen[id] = h
	}
}

type recordingImporter struct {
	calls []Handoff
	err   error
}

func (r *recordingImporter) Import(_ context.Context, h Handoff) error {
	r.calls = append(r.calls, h)
	return r.err
}
