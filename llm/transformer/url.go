package transformer

import (
	"strings"
)

// NormalizeBaseURL normalizes the base URL of a provider API.
// It trims trailing slashes and appends the version path segment unless the
// URL already carries it. A trailing "#" disables the version handling and
// uses the URL as is.
func NormalizeBaseURL(url, version string) string {
	if url == "" {
		return ""
	}

	if before, ok := strings.CutSuffix(url, "#"); ok {
		return strings.TrimRight(before, "/")
	}

	trimmed := strings.TrimRight(url, "/")

	if version == "" {
		return trimmed
	}

	if strings.HasSuffix(trimmed, "/"+version) || strings.Contains(trimmed, "/"+version+"/") {
		return trimmed
	}

	return trimmed + "/" + version
}
