package triage

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the release of this module, taken from the VERSION file.
var Version = strings.TrimSpace(rawVersion)
