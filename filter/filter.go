// Package filter rejects resolved files whose name matches a configured
// keyword blocklist. It runs after resolution (the filename only exists
// then) and before any bytes are transferred.
package filter

import "strings"

// Filter matches filenames against a lowercase keyword list.
type Filter struct {
	keywords []string
}

// New builds a Filter; keywords are compared case-insensitively.
func New(keywords []string) *Filter {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(strings.ToLower(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Filter{keywords: lowered}
}

// Check returns the first blocklist keyword contained in the filename,
// or ok=true when none matches.
func (f *Filter) Check(filename string) (keyword string, ok bool) {
	lowered := strings.ToLower(filename)
	for _, k := range f.keywords {
		if strings.Contains(lowered, k) {
			return k, false
		}
	}
	return "", true
}
