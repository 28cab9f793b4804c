package review

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

func TestReviewApp_Render(t *testing.T) {
	columns := []ColumnView{
		{Index: 0, Header: "Email", State: stateMatched, Field: "Email", Preview: []string{"a@x.io"}},
		{Index: 1, Header: "Alt", State: stateUnmatched, Preview: []string{"b@x.io"}},
	}
	fields := []FieldView{{ID: "email", Label: "Email", Required: true, Holder: "Email"}}

	tests := []struct {
		name     string
		view     ViewData
		contains []string
		excludes []string
	}{
		{
			name:     "idle",
			view:     ViewData{ID: "s1", Phase: reconcile.PhaseReviewing, Columns: columns, Fields: fields},
			contains: []string{`id="review-app"`, "Import", "Reset"},
			excludes: []string{"Both columns want", "Match &#34;", "Keep selected"},
		},
		{
			name:     "changing",
			view:     ViewData{ID: "s1", Phase: reconcile.PhaseReviewing, Columns: columns, Fields: fields, Changing: "Alt"},
			contains: []string{"picker-panel", "Done"},
			excludes: []string{"Both columns want"},
		},
		{
			name: "conflict",
			view: ViewData{
				ID: "s1", Phase: reconcile.PhaseReviewing, Columns: columns, Fields: fields, Changing: "Alt",
				Conflict: &ConflictView{Field: "Email", HeaderA: "Email", IndexA: 0, HeaderB: "Alt", IndexB: 1},
			},
			contains: []string{"Both columns want Email", "Keep selected"},
			excludes: []string{"picker-panel"},
		},
		{
			name:     "completed",
			view:     ViewData{ID: "s1", Phase: reconcile.PhaseCompleted, Columns: columns, RowCount: 3},
			contains: []string{"Imported 3 rows."},
			excludes: []string{"Reset", "Both columns want"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NotPanics(t, func() {
				require.NoError(t, reviewApp(tt.view).Render(&buf))
			})
			out := buf.String()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}
