// Package web carries the dashboard's templates and browser assets, compiled
// into the binary.
package web

import "embed"

// Templates holds layouts, partials and pages under templates/.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds the stylesheet and script served under /static/.
//
//go:embed static/**/*
var Static embed.FS
