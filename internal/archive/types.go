// Package archive defines core types shared across the crawl pipeline.
package archive

import "time"

// Site identifies one language edition of the publisher. The set is closed:
// every Site has a matching adapter and no adapters are loaded dynamically.
type Site string

// Supported language editions.
const (
	SiteEnglish    Site = "english"
	SiteMandarin   Site = "mandarin"
	SiteCantonese  Site = "cantonese"
	SiteBurmese    Site = "burmese"
	SiteKorean     Site = "korean"
	SiteLao        Site = "lao"
	SiteKhmer      Site = "khmer"
	SiteTibetan    Site = "tibetan"
	SiteUyghur     Site = "uyghur"
	SiteVietnamese Site = "vietnamese"
)

// AllSites returns every supported edition in stable order.
func AllSites() []Site {
	return []Site{
		SiteEnglish,
		SiteMandarin,
		SiteCantonese,
		SiteBurmese,
		SiteKorean,
		SiteLao,
		SiteKhmer,
		SiteTibetan,
		SiteUyghur,
		SiteVietnamese,
	}
}

// MediaKind classifies stored content.
type MediaKind string

// Media kinds persisted by the content store.
const (
	MediaPage  MediaKind = "page"
	MediaImage MediaKind = "image"
)

// PageKind classifies a frontier entry.
type PageKind string

// Frontier entry kinds.
const (
	PageList    PageKind = "list"
	PageArticle PageKind = "article"
	PageImage   PageKind = "image"
)

// Media returns the content kind the fetcher should expect for this page kind.
func (k PageKind) Media() MediaKind {
	if k == PageImage {
		return MediaImage
	}
	return MediaPage
}

// FrontierEntry is a discovered-but-not-yet-fetched URL. Entries are created
// on discovery, consumed exactly once by the scheduler and never mutated.
// Uniqueness is the (Site, URL) pair.
type FrontierEntry struct {
	Site  Site     `json:"site"`
	URL   string   `json:"url"`
	Kind  PageKind `json:"kind"`
	Depth int      `json:"depth"`
	// Window tags list entries with the site-month feed window ("2006-01")
	// they enumerate, so completed windows can be skipped on re-runs.
	Window string `json:"window,omitempty"`
}

// FetchRequest captures everything needed to fetch one URL.
type FetchRequest struct {
	Site Site
	URL  string
	Kind MediaKind
}

// FetchResult is the outcome of a successful fetch. It is ephemeral: the
// scheduler hands it to the site adapter or content store and drops it.
type FetchResult struct {
	URL         string
	StatusCode  int
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// ArticleRecord is the parsed form of one article page.
type ArticleRecord struct {
	Site        Site      `json:"site"`
	CanonicalID string    `json:"canonical_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	BodyHTML    string    `json:"body_html"`
	ImageURLs   []string  `json:"image_urls"`
	SourceURL   string    `json:"source_url"`
	PublishedAt time.Time `json:"published_at"`
}

// StoredContent describes one content-addressed object owned by the content
// store. Identical bytes map to a single object regardless of how many
// logical URLs produced them.
type StoredContent struct {
	Hash string    `json:"hash"`
	Size int64     `json:"size"`
	Kind MediaKind `json:"kind"`
	Path string    `json:"path"`
}

// ArchiveRecord maps a logical identifier to stored content. Many records may
// reference the same StoredContent (image reuse across articles). Records are
// upserted on refetch and never deleted.
type ArchiveRecord struct {
	Site        Site      `json:"site"`
	LogicalID   string    `json:"logical_id"`
	ContentHash string    `json:"content_hash"`
	Kind        MediaKind `json:"kind"`
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Checkpoint is a durable snapshot of one site's crawl progress. The visited
// set is a superset of every URL that has an ArchiveRecord.
type Checkpoint struct {
	RunID    string          `json:"run_id"`
	Site     Site            `json:"site"`
	Visited  []string        `json:"visited"`
	Frontier []FrontierEntry `json:"frontier"`
	SavedAt  time.Time       `json:"saved_at"`
}

// Summary reports per-site crawl counters to the operator.
type Summary struct {
	Fetched          int `json:"fetched"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	NotFound         int `json:"not_found"`
	ParseFailed      int `json:"parse_failed"`
	Errored          int `json:"errored"`
}
