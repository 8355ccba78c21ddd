// Package web embeds the map page, its fragments and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates holds map.html and fragments/*.html.
func Templates() fs.FS {
	sub, _ := fs.Sub(files, "templates")
	return sub
}

// Static holds the page's script and stylesheet.
func Static() fs.FS {
	sub, _ := fs.Sub(files, "static")
	return sub
}

// TemplatePatterns are the globs parsed into the renderer.
var TemplatePatterns = []string{"*.html", "fragments/*.html"}
