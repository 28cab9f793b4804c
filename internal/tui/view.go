package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

type styles struct {
	title      lipgloss.Style
	muted      lipgloss.Style
	card       lipgloss.Style
	cardFocus  lipgloss.Style
	cardChange lipgloss.Style
	header     lipgloss.Style
	matched    lipgloss.Style
	unmatched  lipgloss.Style
	ignored    lipgloss.Style
	indicator  lipgloss.Style
	panel      lipgloss.Style
	selected   lipgloss.Style
	status     lipgloss.Style
	statusErr  lipgloss.Style
}

func defaultStyles() styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(output.ColorMuted).
		Width(CardWidth-2).
		Padding(0, 1)

	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(output.ColorPrimary),
		muted:      lipgloss.NewStyle().Foreground(output.ColorMuted),
		card:       card,
		cardFocus:  card.BorderForeground(output.ColorPrimary),
		cardChange: card.BorderForeground(output.ColorWarning).BorderStyle(lipgloss.DoubleBorder()),
		header:     lipgloss.NewStyle().Bold(true),
		matched:    lipgloss.NewStyle().Foreground(output.ColorSuccess),
		unmatched:  lipgloss.NewStyle().Foreground(output.ColorWarning).Bold(true),
		ignored:    lipgloss.NewStyle().Foreground(output.ColorMuted).Strikethrough(true),
		indicator:  lipgloss.NewStyle().Foreground(output.ColorWarning),
		panel:      lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(output.ColorMuted).Padding(0, 1),
		selected:   lipgloss.NewStyle().Foreground(output.ColorPrimary).Bold(true),
		status:     lipgloss.NewStyle().Foreground(output.ColorSuccess),
		statusErr:  lipgloss.NewStyle().Foreground(output.ColorError),
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.renderIndicators())
	b.WriteString("\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n")

	switch mode := m.sess.Mode().(type) {
	case reconcile.Changing:
		b.WriteString(m.renderPicker(mode.Header))
		b.WriteString("\n")
	case reconcile.ResolvingConflict:
		b.WriteString(m.renderConflict(mode.Conflict))
		b.WriteString("\n")
	}

	if missing := m.sess.MissingRequired(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, f := range missing {
			labels[i] = f.Label()
		}
		b.WriteString(m.styles.unmatched.Render("Required: " + strings.Join(labels, ", ")))
		b.WriteString("\n")
	}

	if m.status != "" {
		style := m.styles.status
		if m.statusErr {
			style = m.styles.statusErr
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTitle() string {
	sum := m.sess.Summary()
	counts := fmt.Sprintf("%d/%d matched · %d ignored", sum.Matched, sum.Columns, sum.Ignored)
	return m.styles.title.Render(m.title) + "  " + m.styles.muted.Render(counts)
}

func (m *Model) renderIndicators() string {
	stats := m.sess.ViewportStats()

	left := ""
	if stats.LeftCount > 0 {
		left = m.styles.indicator.Render(fmt.Sprintf("◀ %d unmatched [", stats.LeftCount))
	}
	right := ""
	if stats.RightCount > 0 {
		right = m.styles.indicator.Render(fmt.Sprintf("] %d unmatched ▶", stats.RightCount))
	}

	gap := m.visibleCount()*CardWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderCards() string {
	cols := m.columns()
	if len(cols) == 0 {
		return m.styles.muted.Render("(no columns)")
	}

	end := m.offset + m.visibleCount()
	if end > len(cols) {
		end = len(cols)
	}

	changing, _ := m.sess.ChangingHeader()
	cards := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		cards = append(cards, m.renderCard(i, cols[i], cols[i] == changing))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) renderCard(i int, header string, changing bool) string {
	inner := CardWidth - 4

	var state string
	switch {
	case m.sess.IsIgnored(header):
		state = m.styles.ignored.Render("ignored")
	default:
		if id, ok := m.sess.Match(header); ok {
			f, _ := m.sess.Field(id)
			state = m.styles.matched.Render(output.Truncate("→ "+f.Label(), inner))
		} else {
			state = m.styles.unmatched.Render("unmatched")
		}
	}

	lines := []string{
		m.styles.header.Render(output.Truncate(fmt.Sprintf("%d. %s", i+1, header), inner)),
		state,
		"",
	}
	preview := m.sess.Table().PreviewOf(header)
	for j := 0; j < reconcile.DefaultPreviewLimit; j++ {
		v := ""
		if j < len(preview) {
			v = output.Truncate(preview[j], inner)
		}
		lines = append(lines, m.styles.muted.Render(v))
	}

	style := m.styles.card
	switch {
	case changing:
		style = m.styles.cardChange
	case i == m.cursor:
		style = m.styles.cardFocus
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPicker(header string) string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render(fmt.Sprintf("Match %q to:", header)))
	b.WriteString("\n")

	current, _ := m.sess.Match(header)
	for i, f := range m.sess.Fields() {
		cursor := "  "
		if i == m.fieldCursor {
			cursor = "▸ "
		}

		label := f.Label()
		if f.Required {
			label += " *"
		}
		line := cursor + label

		if holder, ok := m.sess.Holder(f.ID); ok && holder != header {
			line += m.styles.muted.Render(fmt.Sprintf("  (matched by %q)", holder))
		}
		switch {
		case i == m.fieldCursor:
			line = m.styles.selected.Render(line)
		case f.ID == current:
			line = m.styles.matched.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return m.styles.panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderConflict(c *reconcile.DuplicationConflict) string {
	side := func(n int, header string, preview []string) string {
		title := fmt.Sprintf("%d. %s", n, header)
		if c.Selected == header {
			title = m.styles.selected.Render("● " + title)
		} else {
			title = "○ " + title
		}
		lines := []string{title}
		for _, v := range preview {
			lines = append(lines, m.styles.muted.Render(output.Truncate(v, CardWidth-4)))
		}
		return m.styles.card.Render(strings.Join(lines, "\n"))
	}

	heading := m.styles.unmatched.Render(fmt.Sprintf("Both columns want %s. Which one keeps it?", c.Field.Label()))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		side(1, c.HeaderA, c.PreviewA),
		side(2, c.HeaderB, c.PreviewB),
	)
	hint := m.styles.muted.Render("1/2 choose · enter confirm · esc cancel")
	return m.styles.panel.Render(heading + "\n" + body + "\n" + hint)
}
