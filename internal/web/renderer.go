// Package web holds the HTML templates and the echo.Renderer that serves them.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var templateFS embed.FS

const (
	templateRoot = "templates"
	layoutFile   = "templates/layout.html"
)

// Renderer executes one page template inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded page. Pages are addressed by their path
// below templates/, e.g. "user/login.html".
func NewRenderer() (*Renderer, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	err = fs.WalkDir(templateFS, templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == layoutFile || !strings.HasSuffix(path, ".html") {
			return nil
		}
		page, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(templateFS, path); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		r.pages[strings.TrimPrefix(path, templateRoot+"/")] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Render satisfies echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, "layout.html", data)
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	},
	"scalar": func(v any) bool {
		switch v.(type) {
		case string, float64, bool, json.Number:
			return true
		}
		return false
	},
	"humanize": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}
