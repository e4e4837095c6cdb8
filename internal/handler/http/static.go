package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static
var staticFS embed.FS

// SetupStaticFiles serves the embedded CSS and scripts under /static/
func SetupStaticFiles(r chi.Router) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static is embedded at build time
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
}
