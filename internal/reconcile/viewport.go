package reconcile

import (
	"math"
	"time"
)

// Default recomputation delays for the Navigator.
const (
	DefaultScrollDebounce = 100 * time.Millisecond
	DefaultSettleDelay    = 50 * time.Millisecond
)

// Geometry is the horizontal layout of the review surface in pixels.
type Geometry struct {
	ScrollOffset float64 `json:"scroll_offset"`
	VisibleWidth float64 `json:"visible_width"`
	ColumnWidth  float64 `json:"column_width"`
}

// ViewportStats counts actionable unmatched columns scrolled out of view.
// The index fields are -1 when the matching count is zero.
type ViewportStats struct {
	LeftCount                int `json:"left_count"`
	RightCount               int `json:"right_count"`
	LeftFirstUnmatchedIndex  int `json:"left_first_unmatched_index"`
	RightFirstUnmatchedIndex int `json:"right_first_unmatched_index"`
}

func emptyStats() ViewportStats {
	return ViewportStats{LeftFirstUnmatchedIndex: -1, RightFirstUnmatchedIndex: -1}
}

// VisibleRange returns the half-open index range [start, end) of columns in
// view for g.
func (g Geometry) VisibleRange() (start, end int) {
	if g.ColumnWidth <= 0 {
		return 0, 0
	}
	start = int(math.Floor(g.ScrollOffset / g.ColumnWidth))
	count := int(math.Ceil(g.VisibleWidth / g.ColumnWidth))
	return start, start + count
}

// ComputeViewportStats reports the actionable unmatched columns (unmatched and
// not ignored) that lie left of and right of the visible window. For each
// side the smallest qualifying index is kept.
func ComputeViewportStats(columns []string, assignment map[string]string, ignored map[string]bool, g Geometry) ViewportStats {
	stats := emptyStats()
	if g.ColumnWidth <= 0 {
		return stats
	}

	start, end := g.VisibleRange()
	for i, header := range columns {
		if _, matched := assignment[header]; matched || ignored[header] {
			continue
		}

		switch {
		case i < start:
			stats.LeftCount++
			if stats.LeftFirstUnmatchedIndex < 0 {
				stats.LeftFirstUnmatchedIndex = i
			}
		case i >= end:
			stats.RightCount++
			if stats.RightFirstUnmatchedIndex < 0 {
				stats.RightFirstUnmatchedIndex = i
			}
		}
	}

	return stats
}

// Navigator tracks scroll geometry for a session and recomputes viewport
// stats on a debounce after scrolling and on a settle delay after layout
// changes. Geometry reported between recomputations is held as pending and
// only sampled when a timer fires.
type Navigator struct {
	s        *Session
	sched    Scheduler
	debounce time.Duration
	settle   time.Duration
	onChange func(ViewportStats)

	pending    Geometry
	sampled    Geometry
	hasSample  bool
	stats      ViewportStats
	dirty      bool
	scrollWait Timer
	settleWait Timer
}

func newNavigator(s *Session, o *options) *Navigator {
	return &Navigator{
		s:        s,
		sched:    o.scheduler,
		debounce: o.debounce,
		settle:   o.settle,
		onChange: o.onViewport,
		stats:    emptyStats(),
		dirty:    true,
	}
}

// ReportScroll records the latest geometry from a scroll event and re-arms
// the debounce timer. Rapid calls coalesce into one recomputation.
func (n *Navigator) ReportScroll(g Geometry) {
	n.pending = g
	if n.scrollWait != nil {
		n.scrollWait.Stop()
	}
	n.scrollWait = n.sched.AfterFunc(n.debounce, n.fireScroll)
}

// ReportLayout records geometry after mount or resize and arms the settle
// delay.
func (n *Navigator) ReportLayout(g Geometry) {
	n.pending = g
	n.InvalidateLayout()
}

// InvalidateLayout marks the stats stale and arms the settle delay so the
// geometry is re-sampled after reflow.
func (n *Navigator) InvalidateLayout() {
	n.dirty = true
	if n.settleWait != nil {
		n.settleWait.Stop()
	}
	n.settleWait = n.sched.AfterFunc(n.settle, n.fireSettle)
}

func (n *Navigator) fireScroll() {
	n.scrollWait = nil
	n.sample()
}

func (n *Navigator) fireSettle() {
	n.settleWait = nil
	n.sample()
}

func (n *Navigator) sample() {
	n.sampled = n.pending
	n.hasSample = true
	n.dirty = true
	stats := n.Stats()
	if n.onChange != nil {
		n.onChange(stats)
	}
}

// Geometry returns the last sampled geometry.
func (n *Navigator) Geometry() (Geometry, bool) {
	return n.sampled, n.hasSample
}

// Stats returns the viewport stats for the sampled geometry and the live
// match state. Before the first sample every count is zero.
func (n *Navigator) Stats() ViewportStats {
	if !n.hasSample {
		return emptyStats()
	}
	if n.dirty {
		n.stats = ComputeViewportStats(n.s.table.Columns, n.s.assignment, n.s.ignored, n.sampled)
		n.dirty = false
	}
	return n.stats
}

// JumpLeft returns the scroll offset of the nearest unmatched column left of
// the viewport. ok is false when there is none.
func (n *Navigator) JumpLeft() (offset float64, ok bool) {
	st := n.Stats()
	if st.LeftCount == 0 {
		return 0, false
	}
	return float64(st.LeftFirstUnmatchedIndex) * n.sampled.ColumnWidth, true
}

// JumpRight returns the scroll offset of the nearest unmatched column right
// of the viewport. ok is false when there is none.
func (n *Navigator) JumpRight() (offset float64, ok bool) {
	st := n.Stats()
	if st.RightCount == 0 {
		return 0, false
	}
	return float64(st.RightFirstUnmatchedIndex) * n.sampled.ColumnWidth, true
}

// Stop cancels pending timers.
func (n *Navigator) Stop() {
	if n.scrollWait != nil {
		n.scrollWait.Stop()
		n.scrollWait = nil
	}
	if n.settleWait != nil {
		n.settleWait.Stop()
		n.settleWait = nil
	}
}
