package humastar

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"sync"
)

// funcs are available to every page and fragment.
var funcs = template.FuncMap{
	"fixed":  func(n int, v float64) string { return fmt.Sprintf("%.*f", n, v) },
	"metres": func(v float64) string { return fmt.Sprintf("%.2f m", v) },
}

// Renderer executes the page and fragment templates. Generated form
// templates are added to the same set at startup, hence the lock.
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
}

// NewRenderer parses the templates in fsys matching patterns.
func NewRenderer(fsys fs.FS, patterns ...string) (*Renderer, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// RenderToBuffer executes the named template into buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.ExecuteTemplate(buf, name, data)
}

// Render executes the named template.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MustRender is Render for templates embedded in the binary, which are
// known to exist. It panics on error.
func (r *Renderer) MustRender(name string, data any) string {
	out, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return out
}
