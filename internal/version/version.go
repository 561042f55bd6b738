// Package version exposes the build version embedded from the VERSION file.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// UserAgent identifies outbound requests to data sources and providers.
func UserAgent() string {
	return "brain-ai/" + Get()
}
