package archive

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a permanently missing resource: a 404/410 response or an
// index lookup with no record. Not retried; the URL is still marked visited
// so a resumed crawl does not retry it either.
var ErrNotFound = errors.New("not found")

// FetchError is a fetch failure that survived the retry budget.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ContentTypeError reports a response whose content type is incompatible with
// the expected media kind.
type ContentTypeError struct {
	URL      string
	Expected MediaKind
	Got      string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("fetch %s: expected %s content, got %q", e.URL, e.Expected, e.Got)
}

// ParseError reports a page that does not match the site template. It is
// counted per URL and never aborts the site's crawl.
type ParseError struct {
	Site Site
	URL  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.URL, e.Site, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError is a content-store or index write failure. Fatal for the
// affected item only; the crawl continues with other items.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CheckpointError is a checkpoint write failure. Without a valid checkpoint
// progress cannot be resumed safely, so the whole crawl stops.
type CheckpointError struct {
	Site Site
	Err  error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Site, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }
