// Package cookie reads request cookies the way the session guard needs them:
// split the header on ';', then on the first '=', and match names exactly.
package cookie

import (
	"net/http"
	"strings"
)

// Parse turns a Cookie header value into a name to value map. Segments
// without '=' are skipped and the first occurrence of a name wins.
func Parse(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}

// Value returns the value of name in a Cookie header.
func Value(header, name string) (string, bool) {
	if header == "" {
		return "", false
	}
	v, ok := Parse(header)[name]
	return v, ok
}

// FromRequest looks name up across every Cookie header of r.
func FromRequest(r *http.Request, name string) (string, bool) {
	headers := r.Header.Values("Cookie")
	if len(headers) == 0 {
		return "", false
	}
	return Value(strings.Join(headers, ";"), name)
}
