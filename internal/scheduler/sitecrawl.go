package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rfarchive/rfarchive/internal/archive"
	"github.com/rfarchive/rfarchive/internal/metrics"
)

// siteCrawl holds the mutable crawl state of one site. The frontier, seen
// set and counters are only touched under mu; workers block on cond while
// draining.
type siteCrawl struct {
	sched   *Scheduler
	site    archive.Site
	adapter archive.SiteAdapter
	runID   string
	logger  *zap.Logger

	mu   sync.Mutex
	cond *sync.Cond
	// frontier is FIFO per site: breadth-first discovery bounds memory and
	// gives predictable progress.
	frontier []archive.FrontierEntry
	// seen dedups discovery; membership is checked and inserted under mu so
	// two workers can never enqueue (and later fetch) the same URL.
	seen map[string]struct{}
	// visited is the completed set persisted in checkpoints. It is a
	// superset of every URL with an ArchiveRecord.
	visited map[string]struct{}
	// inflightEntries tracks dequeued-but-unfinished work so checkpoints
	// never lose it.
	inflightEntries map[string]archive.FrontierEntry
	sinceCheckpoint int
	state           State
	fatal           error
	summary         archive.Summary
}

func newSiteCrawl(s *Scheduler, site archive.Site, adapter archive.SiteAdapter, runID string) *siteCrawl {
	c := &siteCrawl{
		sched:           s,
		site:            site,
		adapter:         adapter,
		runID:           runID,
		logger:          s.logger.With(zap.String("site", string(site))),
		seen:            make(map[string]struct{}),
		visited:         make(map[string]struct{}),
		inflightEntries: make(map[string]archive.FrontierEntry),
		state:           StateIdle,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// State reports the current lifecycle state.
func (c *siteCrawl) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *siteCrawl) run(ctx context.Context) error {
	c.seed(ctx)

	// Wake blocked workers when the context finishes so cancellation does
	// not hang the drain.
	stopWatch := context.AfterFunc(ctx, func() {
		c.cond.Broadcast()
	})
	defer stopWatch()

	var wg sync.WaitGroup
	for i := 0; i < c.sched.cfg.WorkersPerSite; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.workerLoop(ctx)
		}()
	}
	wg.Wait()

	c.mu.Lock()
	fatal := c.fatal
	c.state = StateDone
	c.mu.Unlock()

	// The final checkpoint still matters after cancellation: in-flight and
	// remaining entries must survive the restart. Skip it only when
	// checkpointing itself is what failed.
	var cpErr *archive.CheckpointError
	if !errors.As(fatal, &cpErr) {
		if err := c.saveCheckpoint(); err != nil && fatal == nil {
			fatal = err
		}
	}

	c.logger.Info("site crawl finished",
		zap.Int("fetched", c.summary.Fetched),
		zap.Int("skipped_duplicate", c.summary.SkippedDuplicate),
		zap.Int("not_found", c.summary.NotFound),
		zap.Int("parse_failed", c.summary.ParseFailed),
		zap.Int("errored", c.summary.Errored),
	)
	return fatal
}

// seed loads the prior checkpoint and merges the adapter's seed URLs with any
// unfinished frontier entries from it.
func (c *siteCrawl) seed(ctx context.Context) {
	c.mu.Lock()
	c.state = StateSeeding
	c.mu.Unlock()

	cp, ok, err := c.sched.checkpoints.Load(c.site)
	if err != nil {
		c.logger.Warn("checkpoint load failed, starting fresh", zap.Error(err))
	} else if ok {
		c.mu.Lock()
		for _, u := range cp.Visited {
			c.visited[u] = struct{}{}
			c.seen[u] = struct{}{}
		}
		c.mu.Unlock()
		c.enqueue(cp.Frontier)
		c.logger.Info("resumed from checkpoint",
			zap.Int("visited", len(cp.Visited)),
			zap.Int("frontier", len(cp.Frontier)),
		)
	}

	seeds := c.adapter.SeedURLs(c.sched.clock.Now())
	fresh := seeds[:0]
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		if seed.Window != "" {
			done, derr := c.sched.index.WindowDone(c.site, seed.Window)
			if derr != nil {
				c.logger.Warn("window-done lookup failed", zap.String("window", seed.Window), zap.Error(derr))
			} else if done {
				continue
			}
		}
		fresh = append(fresh, seed)
	}
	c.enqueue(fresh)

	c.mu.Lock()
	c.state = StateCrawling
	c.mu.Unlock()
}

// enqueue adds entries that have not been seen before. Check-and-insert is
// atomic with the frontier push.
func (c *siteCrawl) enqueue(entries []archive.FrontierEntry) {
	if len(entries) == 0 {
		return
	}
	c.mu.Lock()
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		if _, dup := c.seen[e.URL]; dup {
			continue
		}
		c.seen[e.URL] = struct{}{}
		c.frontier = append(c.frontier, e)
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *siteCrawl) workerLoop(ctx context.Context) {
	for {
		entry, ok := c.next(ctx)
		if !ok {
			return
		}

		metrics.IncActiveWorkers()
		c.process(ctx, entry)
		metrics.DecActiveWorkers()

		c.finish(entry)
	}
}

// next dequeues the oldest frontier entry, blocking while the frontier is
// empty but work is still in flight (draining). ok=false means the site is
// finished or the crawl is stopping.
func (c *siteCrawl) next(ctx context.Context) (archive.FrontierEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if ctx.Err() != nil || c.fatal != nil {
			return archive.FrontierEntry{}, false
		}
		if len(c.frontier) > 0 {
			entry := c.frontier[0]
			c.frontier = c.frontier[1:]
			c.inflightEntries[entry.URL] = entry
			c.state = StateCrawling
			return entry, true
		}
		if len(c.inflightEntries) == 0 {
			return archive.FrontierEntry{}, false
		}
		c.state = StateDraining
		c.cond.Wait()
	}
}

// finish retires an in-flight entry and checkpoints every N completions.
func (c *siteCrawl) finish(entry archive.FrontierEntry) {
	c.mu.Lock()
	delete(c.inflightEntries, entry.URL)
	c.sinceCheckpoint++
	needCheckpoint := c.sinceCheckpoint >= c.sched.cfg.CheckpointEvery
	if needCheckpoint {
		c.sinceCheckpoint = 0
	}
	c.mu.Unlock()
	c.cond.Broadcast()

	if needCheckpoint {
		if err := c.saveCheckpoint(); err != nil {
			c.setFatal(err)
		}
	}
}

// requeue returns a dequeued entry to the frontier after a canceled fetch.
// The entry is already in seen, so enqueue would drop it; without this the
// final checkpoint would hold it in neither Visited nor Frontier and a done
// window would never surface it again.
func (c *siteCrawl) requeue(entry archive.FrontierEntry) {
	c.mu.Lock()
	c.frontier = append(c.frontier, entry)
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *siteCrawl) setFatal(err error) {
	c.mu.Lock()
	if c.fatal == nil {
		c.fatal = err
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// saveCheckpoint snapshots visited plus the remaining and in-flight frontier.
// In-flight entries are included so a kill mid-fetch loses nothing; refetching
// them on resume is idempotent.
func (c *siteCrawl) saveCheckpoint() error {
	c.mu.Lock()
	cp := archive.Checkpoint{
		RunID:   c.runID,
		Site:    c.site,
		SavedAt: c.sched.clock.Now(),
		Visited: make([]string, 0, len(c.visited)),
	}
	for u := range c.visited {
		cp.Visited = append(cp.Visited, u)
	}
	cp.Frontier = make([]archive.FrontierEntry, 0, len(c.frontier)+len(c.inflightEntries))
	cp.Frontier = append(cp.Frontier, c.frontier...)
	for _, e := range c.inflightEntries {
		cp.Frontier = append(cp.Frontier, e)
	}
	c.mu.Unlock()

	return c.sched.checkpoints.Save(cp)
}

func (c *siteCrawl) markVisited(url string) {
	c.mu.Lock()
	c.visited[url] = struct{}{}
	c.mu.Unlock()
}

func (c *siteCrawl) count(status string, bytes int, f func(sum *archive.Summary)) {
	c.mu.Lock()
	f(&c.summary)
	c.mu.Unlock()
	metrics.ObserveEntry(string(c.site), status, bytes)
}

// windowCutoff is the newest month that may be marked done. More recent
// windows stay open because the publisher can still add articles to them.
func (c *siteCrawl) windowCutoff() time.Time {
	return c.sched.clock.Now().AddDate(0, -c.sched.cfg.WindowDoneLag, 0)
}
