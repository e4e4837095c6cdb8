package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"product-views/internal/domain"
	"product-views/internal/format"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{"products", "product", "admin", "error"}

// renderer holds one parsed template set per page, each sharing the layout
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(f *format.Formatter) (*renderer, error) {
	funcs := f.FuncMap()
	funcs["stars"] = stars

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	return r, nil
}

// render executes the page into a buffer first so a template failure can
// still produce a clean 500.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// stars returns five flags, true for each filled star
func stars(r domain.Rating) []bool {
	filled := r.Stars()
	out := make([]bool, 5)
	for i := range out {
		out[i] = i < filled
	}
	return out
}

// errorPage is the data of error.html
type errorPage struct {
	Title   string
	Heading string
	Message string
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	if err := h.pages.render(w, status, name, data); err != nil {
		h.logger.Error("Failed to render page", "page", name, "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, status int, heading, message string) {
	h.renderPage(w, status, "error", errorPage{
		Title:   heading,
		Heading: heading,
		Message: message,
	})
}
