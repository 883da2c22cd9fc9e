package web

import "embed"

// TemplatesFS embeds the status page and the printable daily report.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet shared by both pages.
//
//go:embed static/*
var StaticFS embed.FS
