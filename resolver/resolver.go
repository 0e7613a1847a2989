package resolver

import (
	"errors"
	"regexp"
)

// Typed resolution failures. Callers branch on these to pick the right
// user remediation; format errors additionally mean the adapter's parsing
// assumptions are stale and a retry will not help.
var (
	// ErrUnsupportedDomain means the URL does not belong to a supported share host.
	ErrUnsupportedDomain = errors.New("unsupported share domain")
	// ErrUpstreamUnreachable covers network errors and upstream HTTP failures.
	ErrUpstreamUnreachable = errors.New("share host unreachable")
	// ErrUpstreamFormat means the share page or API payload no longer matches
	// any known shape.
	ErrUpstreamFormat = errors.New("share host response format changed")
)

// ResolvedLink is the outcome of a successful resolution. SizeBytes is 0
// when the upstream did not declare a size.
type ResolvedLink struct {
	DirectURL string `json:"direct_url"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

// linkPattern captures the share key from the URL variants the service
// uses. Matching is case-insensitive and ignores any query string.
var linkPattern = regexp.MustCompile(
	`(?i)https?://(?:www\.)?(?:(?:1024)?terabox|teraboxlink|terafileshare)\.(?:com|app)/(?:s/)?([A-Za-z0-9_-]+)`,
)

// ExtractLink returns the first supported share link found in free text,
// or "" when there is none.
func ExtractLink(text string) string {
	return linkPattern.FindString(text)
}

// ShareKey extracts the share key from a supported URL.
func ShareKey(rawURL string) (string, error) {
	m := linkPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", ErrUnsupportedDomain
	}
	return m[1], nil
}
