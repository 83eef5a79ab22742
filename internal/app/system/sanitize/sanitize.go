// Package sanitize strips markup from free-text fields (project details,
// notes, bios, notification bodies) before they are stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML tag and trims the result. Entities produced by the
// policy are unescaped again so plain text round-trips unchanged.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// List applies Text to every entry and drops entries that end up empty.
func List(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = Text(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
