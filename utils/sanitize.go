package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from upstream-provided text (filenames, titles)
// before it is interpolated into HTML-mode chat messages.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
