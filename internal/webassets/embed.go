// Package webassets embeds the files the server needs before any catalog
// is loaded: the seed catalog, the page layout, static assets and the
// fallback pages.
package webassets

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed fallback seed static layout
var embedded embed.FS

var layout = template.Must(template.ParseFS(embedded, "layout/*.html"))

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// FallbackFS holds maintenance.html and 404.html.
func FallbackFS() fs.FS { return sub("fallback") }

// StaticFS is served under /static/.
func StaticFS() fs.FS { return sub("static") }

// Layout defines the "page" and "confirm" templates. Callers must Clone
// before adding templates of their own.
func Layout() *template.Template { return layout }

// SeedCatalog returns the embedded catalog document, or false if the
// build carries none.
func SeedCatalog() ([]byte, bool) {
	data, err := fs.ReadFile(embedded, "seed/catalog.json")
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
