// Package ui serves the browser entry point. The node ships no frontend;
// the root page sends browsers to the interactive API documentation.
package ui

import (
	"net/http"
)

// DocsPath is where the root page redirects.
const DocsPath = "/docs"

// Handler returns the handler mounted at "/".
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, DocsPath, http.StatusFound)
	})
}
