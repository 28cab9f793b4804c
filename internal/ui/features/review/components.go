package review

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	. "maragu.dev/gomponents"
	ds "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"

	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
)

// appID is the element patched on every update.
const appID = "review-app"

// measure reads the strip geometry into signals.
const measure = "$scrollOffset = el.scrollLeft; $visibleWidth = el.clientWidth; "

func action(id, path string) string {
	return "@post('/review/" + id + path + "')"
}

func onClick(id, path string) Node {
	return Attr("data-on:click", action(id, path))
}

func reviewPage(v ViewData, isDev bool) Node {
	strip := "document.getElementById('strip')"
	layout := "$scrollOffset = " + strip + ".scrollLeft; $visibleWidth = " + strip + ".clientWidth; " + action(v.ID, "/viewport/layout")

	return common.Page(v.FileName, isDev, "/review/"+v.ID+"/updates",
		Div(
			ds.Signals(map[string]any{"scrollOffset": 0, "visibleWidth": 0}),
			Attr("data-init", layout),
			Attr("data-on:resize__window__debounce.100ms", layout),
			reviewApp(v),
		),
	)
}

func reviewApp(v ViewData) Node {
	return Div(ID(appID), Style(fmt.Sprintf("--column-width: %dpx", v.ColumnWidth)),
		Div(Class("review-head"),
			H1(Text(v.FileName)),
			Span(Class("counts"), Textf("%d of %d columns matched, %d ignored", v.Counts.Matched, v.Counts.Columns, v.Counts.Ignored)),
		),
		common.ErrorBanner(v.Error),
		common.NoticeBanner(v.Notice),
		If(v.Completed(), common.NoticeBanner(fmt.Sprintf("Imported %d rows.", v.RowCount))),
		indicators(v),
		Div(ID("strip"), Class("strip"),
			Attr("data-on:scroll__throttle.100ms", measure+action(v.ID, "/viewport/scroll")),
			Map(v.Columns, func(c ColumnView) Node { return columnCard(v, c) }),
		),
		fieldPicker(v),
		conflictPanel(v),
		missingFields(v.Missing),
		toolbar(v),
	)
}

func indicators(v ViewData) Node {
	var left, right Node
	if v.Stats.LeftCount > 0 {
		left = Button(Class("indicator"), onClick(v.ID, "/jump/left"),
			Textf("◀ %d unmatched", v.Stats.LeftCount))
	} else {
		left = Span()
	}
	if v.Stats.RightCount > 0 {
		right = Button(Class("indicator"), onClick(v.ID, "/jump/right"),
			Textf("%d unmatched ▶", v.Stats.RightCount))
	}
	return Div(Class("indicators"), left, right)
}

func columnCard(v ViewData, c ColumnView) Node {
	col := "/columns/" + strconv.Itoa(c.Index)

	var state Node
	switch c.State {
	case stateMatched:
		state = Div(Class("state state-matched"), Text("→ "+c.Field))
	case stateIgnored:
		state = Div(Class("state state-ignored"), Text("ignored"))
	default:
		state = Div(Class("state state-unmatched"), Text("unmatched"))
	}

	ignoreLabel := "Ignore"
	if c.State == stateIgnored {
		ignoreLabel = "Include"
	}

	classes := "card card-" + c.State
	if c.Changing {
		classes += " focused"
	}

	return Div(Class(classes), Data("column", strconv.Itoa(c.Index)),
		Div(Class("header"), Title(c.Header), Textf("%d. %s", c.Index+1, c.Header)),
		state,
		Ul(Class("preview"), Map(c.Preview, func(s string) Node { return Li(Text(s)) })),
		If(!v.Completed() && v.Conflict == nil,
			Div(Class("actions"),
				Button(onClick(v.ID, col+"/change"), Text("Change")),
				Button(onClick(v.ID, col+"/ignore"), Text(ignoreLabel)),
				If(c.State == stateMatched, Button(onClick(v.ID, col+"/unassign"), Text("Unassign"))),
			),
		),
	)
}

func fieldPicker(v ViewData) Node {
	if v.Changing == "" || v.Conflict != nil {
		return nil
	}
	return Div(Class("panel picker-panel"),
		H2(Textf("Match %q to", v.Changing)),
		Ul(Class("picker"),
			Map(v.Fields, func(f FieldView) Node {
				label := f.Label
				if f.Required {
					label += " *"
				}
				return Li(
					Button(onClick(v.ID, "/assign/"+url.PathEscape(f.ID)),
						If(f.Current, Class("current")),
						Text(label),
					),
					If(f.Holder != "" && f.Holder != v.Changing,
						Span(Class("holder"), Textf("matched by %q", f.Holder))),
				)
			}),
		),
		Button(onClick(v.ID, "/done"), Text("Done")),
	)
}

func conflictPanel(v ViewData) Node {
	c := v.Conflict
	if c == nil {
		return nil
	}
	side := func(n, idx int, header string, preview []string) Node {
		classes := "conflict-side"
		if c.Selected == header {
			classes += " selected"
		}
		return Div(Class(classes), onClick(v.ID, "/columns/"+strconv.Itoa(idx)+"/select"),
			H3(Textf("%d. %s", n, header)),
			Ul(Class("preview"), Map(preview, func(s string) Node { return Li(Text(s)) })),
		)
	}

	return Div(Class("panel conflict"),
		P(Textf("Both columns want %s. Which one keeps it?", c.Field)),
		Div(Class("conflict-sides"),
			side(1, c.IndexA, c.HeaderA, c.PreviewA),
			side(2, c.IndexB, c.HeaderB, c.PreviewB),
		),
		Div(Class("toolbar"),
			Button(onClick(v.ID, "/resolve"), If(c.Selected == "", Disabled()), Text("Keep selected")),
			Button(onClick(v.ID, "/cancel"), Text("Cancel")),
		),
	)
}

func missingFields(labels []string) Node {
	if len(labels) == 0 {
		return nil
	}
	return Div(Class("missing"), Text("Required fields not matched: "+strings.Join(labels, ", ")))
}

func toolbar(v ViewData) Node {
	if v.Completed() {
		return nil
	}
	return Div(Class("toolbar"),
		Button(onClick(v.ID, "/proceed"), If(v.Conflict != nil, Disabled()), Text("Import")),
		Button(onClick(v.ID, "/reset"), Text("Reset")),
		A(Href("/"), Text("Back to sessions")),
	)
}
