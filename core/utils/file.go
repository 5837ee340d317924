package utils

import (
	"regexp"
	"strings"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// SafeFileName sanitizes a track title into a filename-safe base. The result
// never contains path separators and never comes back empty.
func SafeFileName(title string) string {
	base := strings.TrimSpace(title)
	if base == "" {
		base = "Untitled_Track"
	}

	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	// Prevent overly long filenames.
	maxLength := 150
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" {
		base = "track"
	}
	return base
}
