// Package common provides the page shell and rendering helpers shared by UI
// features.
package common

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// Templ adapts a gomponents node to templ.Component so it can be patched
// with datastar's PatchElementTempl.
func Templ(n g.Node) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return n.Render(w)
	})
}

// RenderHTML writes a full HTML response.
func RenderHTML(w http.ResponseWriter, status int, n g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = n.Render(w)
}
