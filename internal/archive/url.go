package archive

import (
	"fmt"
	"net/url"
	"strings"
)

// LogicalID derives the stable identifier for an archived URL: the URL path
// with surrounding slashes trimmed, query and fragment dropped. It addresses
// content independent of storage location, so it must be reproducible from
// the source URL alone.
func LogicalID(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", sourceURL, err)
	}
	id := strings.Trim(u.Path, "/")
	if id == "" {
		return "", fmt.Errorf("url %q has no path to derive an id from", sourceURL)
	}
	return id, nil
}

// ResolveURL resolves a possibly relative or scheme-less reference against a
// base URL. Feed payloads routinely carry bare paths for images.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse url reference %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
