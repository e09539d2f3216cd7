package archive

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves a URL and returns the body plus metadata. Implementations
// are stateless and safe for concurrent use; politeness and retry live behind
// this interface.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// SiteAdapter encapsulates per-edition discovery and parsing rules. The
// scheduler and fetcher are adapter-agnostic.
type SiteAdapter interface {
	// Site reports the edition this adapter serves.
	Site() Site
	// SeedURLs produces the crawl entry points, once at crawl start.
	SeedURLs(now time.Time) []FrontierEntry
	// ExtractLinks returns further frontier entries found on a fetched list
	// or article page: list pages, article pages and referenced images.
	ExtractLinks(entry FrontierEntry, res FetchResult) ([]FrontierEntry, error)
	// ExtractArticle parses a single article page into archivable content.
	// A *ParseError means the page does not match the expected template.
	ExtractArticle(entry FrontierEntry, res FetchResult) (ArticleRecord, error)
}

// ContentStore is content-addressed storage for pages and images.
type ContentStore interface {
	// Put persists data under its content hash. It reports isNew=false and
	// performs no write when an object with the same hash already exists.
	Put(data []byte, kind MediaKind) (StoredContent, bool, error)
	// Open returns a reader over a stored object.
	Open(hash string, kind MediaKind) (io.ReadCloser, error)
}

// Index is the durable record queried by the external serving layer.
type Index interface {
	Record(rec ArchiveRecord) error
	Lookup(site Site, logicalID string) (ArchiveRecord, error)
	MarkWindowDone(site Site, window string) error
	WindowDone(site Site, window string) (bool, error)
}

// Checkpointer persists and restores per-site crawl progress.
type Checkpointer interface {
	Save(cp Checkpoint) error
	// Load returns ok=false when no checkpoint exists for the site.
	Load(site Site) (Checkpoint, bool, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
