//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// Handler serves assets from the source tree so stylesheet edits show up
// on reload.
func Handler() http.Handler {
	dir := "internal/ui/resources/static"
	if _, file, _, ok := runtime.Caller(0); ok {
		dir = filepath.Join(filepath.Dir(file), "static")
	}
	slog.Info("static assets served from filesystem", "path", dir)
	return serve(http.FS(os.DirFS(dir)), "no-cache")
}
