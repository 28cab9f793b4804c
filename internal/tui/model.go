// Package tui implements the terminal review surface: a horizontally
// scrolling strip of column cards with a field picker, a conflict panel and
// unmatched-column indicators driven by the session's navigator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// CardWidth is the rendered width of one column card in cells. It is also
// the column width reported to the navigator.
const CardWidth = 28

// Backend persists and imports sessions.
type Backend interface {
	Save(sess *reconcile.Session) error
	Proceed(ctx context.Context, sess *reconcile.Session) (reconcile.ProceedResult, error)
}

// Outcome is how the review ended.
type Outcome struct {
	Imported bool
	Saved    bool
	Err      error
}

// Model is the bubbletea model for reviewing one session.
type Model struct {
	ctx     context.Context
	sess    *reconcile.Session
	backend Backend
	sched   *Scheduler
	title   string

	keys   KeyMap
	help   help.Model
	styles styles

	width       int
	height      int
	cursor      int // focused column
	offset      int // first visible column
	fieldCursor int // picker selection

	status    string
	statusErr bool
	outcome   Outcome
}

// New creates a review model. sched may be nil when the session runs on a
// scheduler the caller drives itself.
func New(ctx context.Context, sess *reconcile.Session, backend Backend, sched *Scheduler, title string) *Model {
	return &Model{
		ctx:     ctx,
		sess:    sess,
		backend: backend,
		sched:   sched,
		title:   title,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		styles:  defaultStyles(),
		width:   CardWidth * 3,
	}
}

// Outcome returns how the review ended.
func (m *Model) Outcome() Outcome { return m.outcome }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerMsg:
		if m.sched != nil {
			m.sched.fire(msg.id)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.offset = m.clampOffset(m.offset)
		m.sess.Navigator().ReportLayout(m.geometry())
		return m, nil

	case tea.KeyMsg:
		if m.sess.Phase() == reconcile.PhaseCompleted {
			return m, tea.Quit
		}
		switch m.sess.Mode().(type) {
		case reconcile.ResolvingConflict:
			return m.handleConflictKey(msg)
		case reconcile.Changing:
			return m.handlePickerKey(msg)
		default:
			return m.handleIdleKey(msg)
		}
	}
	return m, nil
}

func (m *Model) columns() []string { return m.sess.Columns() }

func (m *Model) focused() string {
	cols := m.columns()
	if len(cols) == 0 {
		return ""
	}
	return cols[m.cursor]
}

func (m *Model) visibleCount() int {
	n := m.width / CardWidth
	if n < 1 {
		return 1
	}
	return n
}

func (m *Model) geometry() reconcile.Geometry {
	return reconcile.Geometry{
		ScrollOffset: float64(m.offset * CardWidth),
		VisibleWidth: float64(m.visibleCount() * CardWidth),
		ColumnWidth:  CardWidth,
	}
}

func (m *Model) clampOffset(off int) int {
	maxOff := len(m.columns()) - m.visibleCount()
	if off > maxOff {
		off = maxOff
	}
	if off < 0 {
		off = 0
	}
	return off
}

// scrollTo moves the first visible column and reports the scroll.
func (m *Model) scrollTo(off int) {
	off = m.clampOffset(off)
	if off == m.offset {
		return
	}
	m.offset = off
	m.sess.Navigator().ReportScroll(m.geometry())
}

func (m *Model) moveCursor(delta int) {
	n := len(m.columns())
	if n == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	m.revealCursor()
}

func (m *Model) revealCursor() {
	switch {
	case m.cursor < m.offset:
		m.scrollTo(m.cursor)
	case m.cursor >= m.offset+m.visibleCount():
		m.scrollTo(m.cursor - m.visibleCount() + 1)
	}
}

func (m *Model) jump(right bool) {
	nav := m.sess.Navigator()
	var (
		off float64
		ok  bool
	)
	if right {
		off, ok = nav.JumpRight()
	} else {
		off, ok = nav.JumpLeft()
	}
	if !ok {
		m.setStatus("No unmatched columns in that direction")
		return
	}
	m.cursor = int(off / CardWidth)
	m.scrollTo(m.cursor)
	m.clearStatus()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

func (m *Model) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Change):
		m.enterChange(m.focused())
	case key.Matches(msg, m.keys.Ignore):
		m.toggleIgnore()
	case key.Matches(msg, m.keys.Unassign):
		if err := m.sess.Unassign(m.focused()); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.JumpLeft):
		m.jump(false)
	case key.Matches(msg, m.keys.JumpRight):
		m.jump(true)
	case key.Matches(msg, m.keys.Reset):
		m.sess.Reset()
		m.setStatus("All matches cleared")
	case key.Matches(msg, m.keys.Proceed):
		return m.proceed()
	case key.Matches(msg, m.keys.Save):
		m.save()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) enterChange(header string) {
	if header == "" {
		return
	}
	if err := m.sess.EnterChangeMode(header); err != nil {
		m.setError(err)
		return
	}
	m.fieldCursor = 0
	if id, ok := m.sess.Match(header); ok {
		for i, f := range m.sess.Fields() {
			if f.ID == id {
				m.fieldCursor = i
			}
		}
	}
	m.clearStatus()
}

func (m *Model) toggleIgnore() {
	header := m.focused()
	if err := m.sess.ToggleIgnore(header); err != nil {
		m.setError(err)
		return
	}
	if m.sess.IsIgnored(header) {
		m.setStatus(fmt.Sprintf("Ignoring %q", header))
	} else {
		m.setStatus(fmt.Sprintf("Including %q", header))
	}
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	header, _ := m.sess.ChangingHeader()
	fields := m.sess.Fields()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back):
		if err := m.sess.ExitChangeMode(); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.Up):
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1)
		m.enterChange(m.focused())
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1)
		m.enterChange(m.focused())
	case key.Matches(msg, m.keys.Change):
		if len(fields) == 0 {
			return m, nil
		}
		field := fields[m.fieldCursor]
		conflict, err := m.sess.TryAssign(header, field.ID)
		switch {
		case err != nil:
			m.setError(err)
		case conflict != nil:
			m.setStatus(fmt.Sprintf("%s is already matched to %q. Choose the column that keeps it.", field.Label(), conflict.Other(header)))
		default:
			m.setStatus(fmt.Sprintf("%q → %s", header, field.Label()))
		}
	case key.Matches(msg, m.keys.Unassign):
		if err := m.sess.Unassign(header); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.Ignore):
		m.toggleIgnore()
	}
	return m, nil
}

func (m *Model) handleConflictKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.sess.Conflict()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Left), msg.String() == "1":
		if err := m.sess.SelectHeaderToResolve(c.HeaderA); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.Right), msg.String() == "2":
		if err := m.sess.SelectHeaderToResolve(c.HeaderB); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.Change):
		if err := m.sess.Resolve(); err != nil {
			m.setStatus("Pick the column that keeps the field first")
			return m, nil
		}
		m.setStatus(fmt.Sprintf("%q keeps the field", c.Selected))
	case key.Matches(msg, m.keys.Back):
		if err := m.sess.Cancel(); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Conflict cancelled")
	case key.Matches(msg, m.keys.Ignore):
		m.toggleIgnore()
	}
	return m, nil
}

func (m *Model) save() {
	if err := m.backend.Save(m.sess); err != nil {
		m.setError(err)
		return
	}
	m.outcome.Saved = true
	m.setStatus("Session saved")
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.sess.Phase() == reconcile.PhaseReviewing {
		if err := m.backend.Save(m.sess); err != nil {
			m.outcome.Err = err
		} else {
			m.outcome.Saved = true
		}
	}
	return m, tea.Quit
}

func (m *Model) proceed() (tea.Model, tea.Cmd) {
	res, err := m.backend.Proceed(m.ctx, m.sess)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidState) {
			m.setStatus("Resolve the open conflict first")
			return m, nil
		}
		m.setError(err)
		return m, nil
	}
	if res.Blocked() {
		labels := make([]string, len(res.Missing))
		for i, f := range res.Missing {
			labels[i] = f.Label()
		}
		m.status = "Match required fields first: " + strings.Join(labels, ", ")
		m.statusErr = true
		return m, nil
	}

	m.outcome.Imported = true
	m.outcome.Saved = true
	return m, tea.Quit
}
