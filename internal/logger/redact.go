package logger

import (
	"net/url"
	"strings"
)

const redactedValue = "REDACTED"

// sensitiveQuery are parameters carrying login material: the browser
// storage handoff, its signature and the provider callback values.
var sensitiveQuery = []string{"browser_auth", "sig", "code", "state", "id_token_hint"}

// RedactQuery masks the values of sensitive parameters in a raw query string.
// Parameter order and every other value are kept byte for byte.
func RedactQuery(rawQuery string, extra ...string) string {
	if rawQuery == "" {
		return ""
	}

	parts := strings.Split(rawQuery, "&")

	for i, part := range parts {
		key, _, found := strings.Cut(part, "=")
		if !found {
			continue
		}

		name, err := url.QueryUnescape(key)
		if err != nil {
			name = key
		}

		if isSensitive(name, extra) {
			parts[i] = key + "=" + redactedValue
		}
	}

	return strings.Join(parts, "&")
}

func isSensitive(name string, extra []string) bool {
	for _, s := range sensitiveQuery {
		if strings.EqualFold(name, s) {
			return true
		}
	}

	for _, s := range extra {
		if strings.EqualFold(name, s) {
			return true
		}
	}

	return false
}

// RedactURL applies RedactQuery to the query part of a raw URL such as a Referer.
func RedactURL(raw string) string {
	base, query, found := strings.Cut(raw, "?")
	if !found {
		return raw
	}

	return base + "?" + RedactQuery(query)
}
