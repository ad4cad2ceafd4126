// Package web carries the embedded HTML templates and static assets so the
// binary serves its UI without a deploy-time asset directory.
package web

import "embed"

// Templates holds the layout, partial, and page templates parsed by the view
// engine.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds the stylesheet and any other assets served under /static/.
//
//go:embed static/**/*
var Static embed.FS
