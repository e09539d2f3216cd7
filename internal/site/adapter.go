package site

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// firstWindow is the earliest month the publisher has content for.
var firstWindow = time.Date(1998, time.January, 1, 0, 0, 0, 0, time.UTC)

// Adapter implements archive.SiteAdapter for one language edition. Editions
// share the publisher's template family, so the adapter differs only in the
// edition constants it is built with.
type Adapter struct {
	site    archive.Site
	edition Edition
}

// NewAdapter builds the adapter for a supported site.
func NewAdapter(s archive.Site) (*Adapter, error) {
	e, err := EditionFor(s)
	if err != nil {
		return nil, err
	}
	return &Adapter{site: s, edition: e}, nil
}

// Adapters builds adapters for each requested site.
func Adapters(sites []archive.Site) (map[archive.Site]archive.SiteAdapter, error) {
	out := make(map[archive.Site]archive.SiteAdapter, len(sites))
	for _, s := range sites {
		a, err := NewAdapter(s)
		if err != nil {
			return nil, err
		}
		out[s] = a
	}
	return out, nil
}

// Site reports the edition this adapter serves.
func (a *Adapter) Site() archive.Site { return a.site }

// SeedURLs enumerates one story-feed list page per month from the first
// window through the current month.
func (a *Adapter) SeedURLs(now time.Time) []archive.FrontierEntry {
	var seeds []archive.FrontierEntry
	for begin := firstWindow; !begin.After(now); begin = begin.AddDate(0, 1, 0) {
		end := begin.AddDate(0, 1, -1)
		seeds = append(seeds, archive.FrontierEntry{
			Site:   a.site,
			URL:    feedURL(a.edition.ArcSite, 0, begin, end),
			Kind:   archive.PageList,
			Window: begin.Format("2006-01"),
		})
	}
	return seeds
}

// ExtractLinks returns the frontier entries discovered on a fetched page:
// the next feed offset page, article pages and referenced images for list
// pages; inline images for article pages.
func (a *Adapter) ExtractLinks(entry archive.FrontierEntry, res archive.FetchResult) ([]archive.FrontierEntry, error) {
	switch entry.Kind {
	case archive.PageList:
		return a.extractFeedLinks(entry, res)
	case archive.PageArticle:
		return a.extractArticleImages(entry, res)
	default:
		return nil, nil
	}
}

func (a *Adapter) extractFeedLinks(entry archive.FrontierEntry, res archive.FetchResult) ([]archive.FrontierEntry, error) {
	var feed feedResponse
	if err := json.Unmarshal(res.Body, &feed); err != nil {
		return nil, &archive.ParseError{Site: a.site, URL: entry.URL, Err: fmt.Errorf("decode story feed: %w", err)}
	}

	var entries []archive.FrontierEntry
	for _, item := range feed.ContentElements {
		if u := item.Websites[a.edition.ArcSite].WebsiteURL; u != "" {
			abs, err := archive.ResolveURL(BaseURL, u)
			if err != nil {
				continue
			}
			entries = append(entries, archive.FrontierEntry{
				Site:  a.site,
				URL:   abs,
				Kind:  archive.PageArticle,
				Depth: entry.Depth + 1,
			})
		}
		for _, img := range item.imageURLs() {
			abs, err := archive.ResolveURL(BaseURL, img)
			if err != nil {
				continue
			}
			entries = append(entries, archive.FrontierEntry{
				Site:  a.site,
				URL:   abs,
				Kind:  archive.PageImage,
				Depth: entry.Depth + 1,
			})
		}
	}

	// Continue offset pagination within the same window until the reported
	// count is satisfied.
	if len(feed.ContentElements) > 0 {
		offset, err := feedOffset(entry.URL)
		if err != nil {
			return entries, &archive.ParseError{Site: a.site, URL: entry.URL, Err: err}
		}
		next := offset + len(feed.ContentElements)
		if feed.Count > next {
			begin, err := time.Parse("2006-01", entry.Window)
			if err == nil {
				end := begin.AddDate(0, 1, -1)
				entries = append(entries, archive.FrontierEntry{
					Site:   a.site,
					URL:    feedURL(a.edition.ArcSite, next, begin, end),
					Kind:   archive.PageList,
					Depth:  entry.Depth,
					Window: entry.Window,
				})
			}
		}
	}

	return entries, nil
}
