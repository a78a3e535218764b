package page

import (
	"net/url"
	"strings"
)

// identifierKey is the explicit form, ?id=<value>.
const identifierKey = "id"

// IdentifierFromQuery extracts the audio identifier from a raw query string.
// The identifier is the first key (?chap17347568BhadreshDoshi1); an explicit
// id=<value> pair anywhere in the query takes precedence.
func IdentifierFromQuery(rawQuery string) (string, bool) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")

	first := ""
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		key = unescape(key)
		if key == identifierKey {
			if v := strings.TrimSpace(unescape(value)); v != "" {
				return v, true
			}
			continue
		}
		if first == "" {
			first = strings.TrimSpace(key)
		}
	}

	return first, first != ""
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
