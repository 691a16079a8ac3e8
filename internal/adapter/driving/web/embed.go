package web

import "embed"

// StaticFS holds the embedded stylesheet and script.
//
//go:embed static/*
var StaticFS embed.FS
