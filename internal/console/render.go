package console

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"steward/internal/access"
	"steward/internal/guard"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every template receives.
type pageData struct {
	Title  string
	Viewer *access.Viewer
	Nav    []navItem
	Notice *guard.Notice
	// XSRF is echoed by every form a signed-in viewer can submit.
	XSRF   string
	Body   any
}

func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"since": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Local().Format("2 Jan 2006 15:04")
		},
		"has": func(granted []string, id string) bool {
			for _, g := range granted {
				if g == id {
					return true
				}
			}
			return false
		},
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		name := p[len("templates/"):]
		if name == "layout.html" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", p)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render writes page with the shared layout. The notice is consumed here so it is
// shown exactly once.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, body any) {
	ctx := r.Context()
	t, ok := h.templates[page]
	if !ok {
		h.logger.ErrorContext(ctx, "unknown template", "template", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	viewer, _ := h.guard.Viewer(r)
	data := pageData{
		Title:  title,
		Viewer: viewer,
		Body:   body,
	}
	if viewer != nil {
		data.Nav = navigation(ctx, viewer, r.URL.Path)
		tok, err := h.xsrf.Token(w, r, viewer.SubjectID())
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to issue form token", "error", err)
		}
		data.XSRF = tok
	}
	if n, ok := h.flash.Pop(w, r); ok {
		data.Notice = &n
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page", "template", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
