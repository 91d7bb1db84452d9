package bundle

import (
	"regexp"
	"strings"
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName makes a scene- or title-derived string safe for file names:
// every character outside [A-Za-z0-9._-] becomes an underscore, leading and
// trailing underscores are trimmed, and an empty result falls back to a
// generic name.
func SanitizeName(name string) string {
	name = unsafeNameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "tour"
	}
	return name
}
