package review

import (
	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// Column states rendered on cards.
const (
	stateMatched   = "matched"
	stateUnmatched = "unmatched"
	stateIgnored   = "ignored"
)

// ColumnView is one card of the review strip.
type ColumnView struct {
	Index    int
	Header   string
	State    string
	Field    string
	Preview  []string
	Changing bool
}

// FieldView is one entry of the field picker.
type FieldView struct {
	ID       string
	Label    string
	Required bool
	Holder   string
	Current  bool
}

// ConflictView is the side-by-side comparison of a duplication conflict.
type ConflictView struct {
	Field    string
	HeaderA  string
	IndexA   int
	PreviewA []string
	HeaderB  string
	IndexB   int
	PreviewB []string
	Selected string
}

// ViewData is everything the review page renders, copied out of the session
// while its lock is held.
type ViewData struct {
	ID          string
	FileName    string
	Phase       reconcile.Phase
	Columns     []ColumnView
	Changing    string
	Fields      []FieldView
	Conflict    *ConflictView
	Missing     []string
	Stats       reconcile.ViewportStats
	Counts      reconcile.Summary
	ColumnWidth int
	RowCount    int

	Error  string
	Notice string
}

// Completed reports whether the session was imported.
func (v ViewData) Completed() bool { return v.Phase == reconcile.PhaseCompleted }

func buildView(s *reconcile.Session, columnWidth int) ViewData {
	v := ViewData{
		ID:          s.ID(),
		FileName:    s.Table().FileName,
		Phase:       s.Phase(),
		Stats:       s.ViewportStats(),
		Counts:      s.Summary(),
		ColumnWidth: columnWidth,
		RowCount:    len(s.Table().Rows),
	}
	v.Changing, _ = s.ChangingHeader()

	for i, h := range s.Columns() {
		c := ColumnView{
			Index:    i,
			Header:   h,
			State:    stateUnmatched,
			Preview:  s.Table().PreviewOf(h),
			Changing: h == v.Changing,
		}
		if id, ok := s.Match(h); ok {
			f, _ := s.Field(id)
			c.Field = f.Label()
			c.State = stateMatched
		}
		if s.IsIgnored(h) {
			c.State = stateIgnored
		}
		v.Columns = append(v.Columns, c)
	}

	if v.Changing != "" {
		current, _ := s.Match(v.Changing)
		for _, f := range s.Fields() {
			holder, _ := s.Holder(f.ID)
			v.Fields = append(v.Fields, FieldView{
				ID:       f.ID,
				Label:    f.Label(),
				Required: f.Required,
				Holder:   holder,
				Current:  f.ID == current,
			})
		}
	}

	if c := s.Conflict(); c != nil {
		ia, _ := s.ColumnIndex(c.HeaderA)
		ib, _ := s.ColumnIndex(c.HeaderB)
		v.Conflict = &ConflictView{
			Field:    c.Field.Label(),
			HeaderA:  c.HeaderA,
			IndexA:   ia,
			PreviewA: c.PreviewA,
			HeaderB:  c.HeaderB,
			IndexB:   ib,
			PreviewB: c.PreviewB,
			Selected: c.Selected,
		}
	}

	for _, f := range s.MissingRequired() {
		v.Missing = append(v.Missing, f.Label())
	}
	return v
}
