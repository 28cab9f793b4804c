// Package resources serves the UI's stylesheet and other static assets.
package resources

import "net/http"

// Prefix is the URL prefix static assets are mounted under.
const Prefix = "/static/"

// StaticPath returns the URL path for a static asset.
func StaticPath(name string) string {
	return Prefix + name
}

func serve(fsys http.FileSystem, cacheControl string) http.Handler {
	files := http.StripPrefix(Prefix, http.FileServer(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}
