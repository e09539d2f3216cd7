package site

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// ExtractArticle parses a single article page into archivable content. Pages
// that do not match the template family yield a *archive.ParseError.
func (a *Adapter) ExtractArticle(entry archive.FrontierEntry, res archive.FetchResult) (archive.ArticleRecord, error) {
	if entry.Kind != archive.PageArticle {
		return archive.ArticleRecord{}, &archive.ParseError{
			Site: a.site, URL: entry.URL,
			Err: fmt.Errorf("entry kind %s is not an article", entry.Kind),
		}
	}

	pageURL, err := url.Parse(entry.URL)
	if err != nil {
		return archive.ArticleRecord{}, &archive.ParseError{Site: a.site, URL: entry.URL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return archive.ArticleRecord{}, &archive.ParseError{Site: a.site, URL: entry.URL, Err: err}
	}

	art, err := readability.FromReader(bytes.NewReader(res.Body), pageURL)
	if err != nil {
		return archive.ArticleRecord{}, &archive.ParseError{
			Site: a.site, URL: entry.URL,
			Err: fmt.Errorf("readability: %w", err),
		}
	}

	title := metaContent(doc, "og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(art.Title)
	}

	body := strings.TrimSpace(art.TextContent)
	if title == "" && body == "" {
		return archive.ArticleRecord{}, &archive.ParseError{
			Site: a.site, URL: entry.URL,
			Err: errors.New("page has neither title nor body"),
		}
	}

	id, err := archive.LogicalID(entry.URL)
	if err != nil {
		return archive.ArticleRecord{}, &archive.ParseError{Site: a.site, URL: entry.URL, Err: err}
	}

	rec := archive.ArticleRecord{
		Site:        a.site,
		CanonicalID: id,
		Title:       title,
		Body:        body,
		BodyHTML:    art.Content,
		ImageURLs:   pageImageURLs(doc, entry.URL),
		SourceURL:   entry.URL,
	}
	if ts := metaContent(doc, "article:published_time"); ts != "" {
		if published, perr := time.Parse(time.RFC3339, ts); perr == nil {
			rec.PublishedAt = published
		}
	}
	return rec, nil
}

func (a *Adapter) extractArticleImages(entry archive.FrontierEntry, res archive.FetchResult) ([]archive.FrontierEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, &archive.ParseError{Site: a.site, URL: entry.URL, Err: err}
	}
	var entries []archive.FrontierEntry
	for _, img := range pageImageURLs(doc, entry.URL) {
		entries = append(entries, archive.FrontierEntry{
			Site:  a.site,
			URL:   img,
			Kind:  archive.PageImage,
			Depth: entry.Depth + 1,
		})
	}
	return entries, nil
}

// pageImageURLs collects the og:image and every <img src> of a page, resolved
// against the page URL, deduplicated in document order.
func pageImageURLs(doc *goquery.Document, pageURL string) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(ref string) {
		if ref == "" {
			return
		}
		abs, err := archive.ResolveURL(pageURL, ref)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}

	add(metaContent(doc, "og:image"))
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		add(src)
	})
	return urls
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(content)
}
