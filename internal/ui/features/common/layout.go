package common

import (
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/leapstack-labs/leapimport/internal/ui/resources"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Page wraps body in the application shell. updatesURL, when set, is opened
// as a long-lived SSE stream on load.
func Page(title string, isDev bool, updatesURL string, body ...Node) Node {
	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(Text(title+" - LeapImport")),
				Link(Rel("icon"), Href("data:,")),
				Link(Rel("stylesheet"), Href(resources.StaticPath("app.css"))),
				Script(Type("module"), Src(datastarScript)),
			),
			Body(
				If(isDev, Div(Attr("data-init", "@get('/reload', {retryMaxCount: 1000})"))),
				If(updatesURL != "", Div(Attr("data-init", "@get('"+updatesURL+"')"))),
				Header(Class("topbar"),
					A(Href("/"), Class("brand"), Text("LeapImport")),
					Nav(
						A(Href("/"), Text("Sessions")),
						A(Href("/imports"), Text("Imports")),
					),
				),
				Main(Class("content"), Group(body)),
			),
		),
	)
}

// ErrorBanner renders msg as an inline error, or nothing when msg is empty.
func ErrorBanner(msg string) Node {
	if msg == "" {
		return nil
	}
	return Div(Class("banner banner-error"), Attr("role", "alert"), Text(msg))
}

// NoticeBanner renders msg as an inline notice, or nothing when msg is empty.
func NoticeBanner(msg string) Node {
	if msg == "" {
		return nil
	}
	return Div(Class("banner banner-notice"), Text(msg))
}
