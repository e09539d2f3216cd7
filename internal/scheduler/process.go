package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rfarchive/rfarchive/internal/archive"
	"github.com/rfarchive/rfarchive/internal/metrics"
)

// process fetches one frontier entry and routes the result by kind. Every
// terminal outcome marks the URL visited; a cancellation re-enqueues the
// entry instead so the final checkpoint keeps it.
func (c *siteCrawl) process(ctx context.Context, entry archive.FrontierEntry) {
	res, err := c.sched.fetcher.Fetch(ctx, archive.FetchRequest{
		Site: entry.Site,
		URL:  entry.URL,
		Kind: entry.Kind.Media(),
	})
	if err != nil {
		if ctx.Err() != nil {
			c.requeue(entry)
			return
		}
		c.markVisited(entry.URL)
		if errors.Is(err, archive.ErrNotFound) {
			c.logger.Debug("gone from origin", zap.String("url", entry.URL))
			c.count("not_found", 0, func(sum *archive.Summary) { sum.NotFound++ })
			return
		}
		c.logger.Warn("fetch failed", zap.String("url", entry.URL), zap.Error(err))
		c.count("error", 0, func(sum *archive.Summary) { sum.Errored++ })
		return
	}

	switch entry.Kind {
	case archive.PageList:
		c.processList(entry, res)
	case archive.PageArticle:
		c.processArticle(entry, res)
	case archive.PageImage:
		c.processImage(entry, res)
	}
}

func (c *siteCrawl) processList(entry archive.FrontierEntry, res archive.FetchResult) {
	c.markVisited(entry.URL)

	links, err := c.adapter.ExtractLinks(entry, res)
	if err != nil {
		c.logger.Warn("list page did not match template", zap.String("url", entry.URL), zap.Error(err))
		c.count("parse_failed", len(res.Body), func(sum *archive.Summary) { sum.ParseFailed++ })
		return
	}
	c.enqueue(links)
	c.count("fetched", len(res.Body), func(sum *archive.Summary) { sum.Fetched++ })

	c.maybeFinishWindow(entry, links)
}

// maybeFinishWindow marks the entry's feed window done when its list chain
// ends here: no further offset page, and either the window produced articles
// or it is old enough that none will appear.
func (c *siteCrawl) maybeFinishWindow(entry archive.FrontierEntry, links []archive.FrontierEntry) {
	if entry.Window == "" {
		return
	}
	hadArticles := false
	for _, l := range links {
		if l.Kind == archive.PageList && l.Window == entry.Window {
			return
		}
		if l.Kind == archive.PageArticle {
			hadArticles = true
		}
	}
	if !hadArticles {
		windowStart, err := time.Parse("2006-01", entry.Window)
		if err != nil || windowStart.After(c.windowCutoff()) {
			return
		}
	}
	if err := c.sched.index.MarkWindowDone(c.site, entry.Window); err != nil {
		c.logger.Warn("mark window done failed", zap.String("window", entry.Window), zap.Error(err))
	}
}

func (c *siteCrawl) processArticle(entry archive.FrontierEntry, res archive.FetchResult) {
	c.markVisited(entry.URL)

	art, err := c.adapter.ExtractArticle(entry, res)
	if err != nil {
		c.logger.Warn("article did not match template", zap.String("url", entry.URL), zap.Error(err))
		c.count("parse_failed", len(res.Body), func(sum *archive.Summary) { sum.ParseFailed++ })
		return
	}

	stored, isNew, err := c.sched.content.Put(res.Body, archive.MediaPage)
	if err != nil {
		c.logger.Error("store article failed", zap.String("url", entry.URL), zap.Error(err))
		c.count("error", len(res.Body), func(sum *archive.Summary) { sum.Errored++ })
		return
	}

	rec := archive.ArchiveRecord{
		Site:        c.site,
		LogicalID:   art.CanonicalID,
		ContentHash: stored.Hash,
		Kind:        archive.MediaPage,
		SourceURL:   entry.URL,
		Title:       art.Title,
		FetchedAt:   c.sched.clock.Now(),
		PublishedAt: art.PublishedAt,
	}
	if err := c.sched.index.Record(rec); err != nil {
		c.logger.Error("index article failed", zap.String("url", entry.URL), zap.Error(err))
		c.count("error", len(res.Body), func(sum *archive.Summary) { sum.Errored++ })
		return
	}

	if isNew {
		c.count("fetched", len(res.Body), func(sum *archive.Summary) { sum.Fetched++ })
	} else {
		metrics.ObserveDedupHit(string(c.site))
		c.count("skipped_duplicate", len(res.Body), func(sum *archive.Summary) { sum.SkippedDuplicate++ })
	}

	// Article pages can reference images the feed did not list.
	if links, lerr := c.adapter.ExtractLinks(entry, res); lerr == nil {
		c.enqueue(links)
	}
}

func (c *siteCrawl) processImage(entry archive.FrontierEntry, res archive.FetchResult) {
	c.markVisited(entry.URL)

	stored, isNew, err := c.sched.content.Put(res.Body, archive.MediaImage)
	if err != nil {
		c.logger.Error("store image failed", zap.String("url", entry.URL), zap.Error(err))
		c.count("error", len(res.Body), func(sum *archive.Summary) { sum.Errored++ })
		return
	}

	logicalID, err := archive.LogicalID(entry.URL)
	if err != nil {
		logicalID = stored.Hash
	}
	rec := archive.ArchiveRecord{
		Site:        c.site,
		LogicalID:   logicalID,
		ContentHash: stored.Hash,
		Kind:        archive.MediaImage,
		SourceURL:   entry.URL,
		FetchedAt:   c.sched.clock.Now(),
	}
	if err := c.sched.index.Record(rec); err != nil {
		c.logger.Error("index image failed", zap.String("url", entry.URL), zap.Error(err))
		c.count("error", len(res.Body), func(sum *archive.Summary) { sum.Errored++ })
		return
	}

	if isNew {
		c.count("fetched", len(res.Body), func(sum *archive.Summary) { sum.Fetched++ })
	} else {
		metrics.ObserveDedupHit(string(c.site))
		c.count("skipped_duplicate", len(res.Body), func(sum *archive.Summary) { sum.SkippedDuplicate++ })
	}
}
