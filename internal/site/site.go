// Package site implements the per-edition adapters for the publisher's ten
// language editions. All editions share one template family, so a single
// adapter parameterized by edition covers the closed set.
package site

import (
	"fmt"
	"sort"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// BaseURL is the publisher origin all editions are served from.
const BaseURL = "https://www.rfa.org"

// Edition holds the per-site constants the adapter needs.
type Edition struct {
	// ArcSite is the site name used by the publisher's content API.
	ArcSite string
	// Code is the stable one-byte site code used in index sort keys.
	Code byte
}

var editions = map[archive.Site]Edition{
	archive.SiteEnglish:    {ArcSite: "radio-free-asia", Code: 0},
	archive.SiteMandarin:   {ArcSite: "rfa-mandarin", Code: 1},
	archive.SiteCantonese:  {ArcSite: "rfa-cantonese", Code: 2},
	archive.SiteBurmese:    {ArcSite: "rfa-burmese", Code: 3},
	archive.SiteKorean:     {ArcSite: "rfa-korean", Code: 4},
	archive.SiteLao:        {ArcSite: "rfa-lao", Code: 5},
	archive.SiteKhmer:      {ArcSite: "rfa-khmer", Code: 6},
	archive.SiteTibetan:    {ArcSite: "rfa-tibetan", Code: 7},
	archive.SiteUyghur:     {ArcSite: "rfa-uyghur", Code: 8},
	archive.SiteVietnamese: {ArcSite: "rfa-vietnamese", Code: 9},
}

// ForName maps a configured site name to its Site value.
func ForName(name string) (archive.Site, error) {
	s := archive.Site(name)
	if _, ok := editions[s]; !ok {
		return "", fmt.Errorf("unknown site %q, available: %v", name, Names())
	}
	return s, nil
}

// EditionFor returns the edition constants for a site.
func EditionFor(s archive.Site) (Edition, error) {
	e, ok := editions[s]
	if !ok {
		return Edition{}, fmt.Errorf("unknown site %q", s)
	}
	return e, nil
}

// Names lists every supported site name in stable order.
func Names() []string {
	names := make([]string, 0, len(editions))
	for s := range editions {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}
