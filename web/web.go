// Package web holds the HTML templates and browser assets served by the
// invoice desk.
package web

import "embed"

// Templates contains the page templates under templates/
//
//go:embed templates/*.html
var Templates embed.FS

// Static contains the stylesheets and scripts under static/
//
//go:embed static
var Static embed.FS
