package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/source"
)

// maxPreviewWidth bounds the preview column in tables.
const maxPreviewWidth = 40

func columnMatches(sess *reconcile.Session) []output.ColumnMatch {
	table := sess.Table()
	out := make([]output.ColumnMatch, 0, len(table.Columns))
	for i, header := range table.Columns {
		cm := output.ColumnMatch{
			Index:   i,
			Header:  header,
			Ignored: sess.IsIgnored(header),
			Preview: table.PreviewOf(header),
		}
		if cm.Preview == nil {
			cm.Preview = []string{}
		}
		if id, ok := sess.Match(header); ok {
			cm.Field = id
			if f, ok := sess.Field(id); ok {
				cm.Label = f.Label()
			}
		}
		out = append(out, cm)
	}
	return out
}

func fieldRefs(fields []reconcile.TargetField) []output.FieldRef {
	out := make([]output.FieldRef, len(fields))
	for i, f := range fields {
		out[i] = output.FieldRef{ID: f.ID, Label: f.Label()}
	}
	return out
}

func matchSummary(s reconcile.Summary) output.MatchSummary {
	return output.MatchSummary(s)
}

func warningStrings(ws []source.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = fmt.Sprintf("row %d: %s", w.Row, w.Message)
	}
	return out
}

// columnState is the status word shown for a column.
func columnState(cm output.ColumnMatch) string {
	switch {
	case cm.Ignored:
		return "ignored"
	case cm.Field != "":
		return "matched"
	default:
		return "unmatched"
	}
}

func previewText(values []string) string {
	return output.Truncate(strings.Join(values, ", "), maxPreviewWidth)
}

// renderColumns writes the column table for text and markdown modes.
func renderColumns(r *output.Renderer, cols []output.ColumnMatch) {
	rows := make([][]string, len(cols))
	for i, cm := range cols {
		field := cm.Field
		if cm.Label != "" && cm.Label != cm.Field {
			field = fmt.Sprintf("%s (%s)", cm.Label, cm.Field)
		}
		state := columnState(cm)
		if r.EffectiveMode() == output.ModeText {
			st := r.Styles()
			switch state {
			case "matched":
				state = st.Matched.Render(state)
			case "ignored":
				state = st.Ignored.Render(state)
			default:
				state = st.Unmatched.Render(state)
			}
		}
		rows[i] = []string{fmt.Sprintf("%d", cm.Index+1), cm.Header, state, field, previewText(cm.Preview)}
	}
	r.Table([]string{"#", "Column", "State", "Field", "Preview"}, rows)
}

// renderMissing writes the completeness gate result.
func renderMissing(r *output.Renderer, missing []output.FieldRef) {
	if len(missing) == 0 {
		r.Success("All required fields are matched")
		return
	}

	labels := make([]string, len(missing))
	for i, f := range missing {
		labels[i] = f.Label
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(2, "Missing required fields"))
		r.Println()
		r.Println(output.FormatList(labels))
		return
	}
	r.Warning(fmt.Sprintf("Missing required fields: %s", strings.Join(labels, ", ")))
}

func summaryLine(s output.MatchSummary) string {
	return fmt.Sprintf("%d columns: %d matched, %d unmatched, %d ignored", s.Columns, s.Matched, s.Unmatched, s.Ignored)
}
