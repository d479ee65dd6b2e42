package web

import "embed"

// staticFiles is the console page and its assets, served from / and /static/.
//
//go:embed static/*
var staticFiles embed.FS
