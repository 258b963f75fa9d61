package server

import (
	"strings"

	"github.com/hupe1980/ariel/internal/content"
)

// formatETag quotes a fingerprint as a strong entity tag.
func formatETag(fingerprint string) string {
	return `"` + fingerprint + `"`
}

// conditionalRequest parses an If-None-Match header into a content
// request. It accepts lists, weak tags and unquoted values; "*" matches any
// existing file.
func conditionalRequest(header string) content.Request {
	var req content.Request

	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}

		if candidate == "*" {
			req.MatchAny = true
			continue
		}

		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)

		if candidate != "" {
			req.IfNoneMatch = append(req.IfNoneMatch, candidate)
		}
	}

	return req
}
