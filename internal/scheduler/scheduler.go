// Package scheduler drives the crawl: it owns the per-site frontier and
// visited set, fans work out to a bounded worker pool per site, and persists
// checkpoints so an interrupted crawl resumes where it left off.
package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// State is one phase of a site's crawl lifecycle.
type State string

// Site crawl states. Crawling is the steady state while the frontier is
// non-empty; draining means the frontier is empty but fetches are in flight.
const (
	StateIdle     State = "idle"
	StateSeeding  State = "seeding"
	StateCrawling State = "crawling"
	StateDraining State = "draining"
	StateDone     State = "done"
)

// Config controls scheduler behavior.
type Config struct {
	// WorkersPerSite bounds concurrent fetches within one site.
	WorkersPerSite int
	// CheckpointEvery persists progress after this many completed entries.
	CheckpointEvery int
	// WindowDoneLag keeps recent feed windows re-crawlable: a window is only
	// marked done once it is at least this many months in the past.
	WindowDoneLag int
}

func (c Config) withDefaults() Config {
	if c.WorkersPerSite <= 0 {
		c.WorkersPerSite = 4
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 50
	}
	if c.WindowDoneLag <= 0 {
		c.WindowDoneLag = 12
	}
	return c
}

// Scheduler crawls a set of sites in parallel. Sites are fully independent:
// separate frontiers, separate politeness budgets, separate checkpoints.
type Scheduler struct {
	adapters    map[archive.Site]archive.SiteAdapter
	fetcher     archive.Fetcher
	content     archive.ContentStore
	index       archive.Index
	checkpoints archive.Checkpointer
	clock       archive.Clock
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Scheduler.
func New(
	adapters map[archive.Site]archive.SiteAdapter,
	fetcher archive.Fetcher,
	content archive.ContentStore,
	index archive.Index,
	checkpoints archive.Checkpointer,
	clock archive.Clock,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		adapters:    adapters,
		fetcher:     fetcher,
		content:     content,
		index:       index,
		checkpoints: checkpoints,
		clock:       clock,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// Run crawls every configured site to completion and returns per-site
// summaries. Per-URL failures are counted, never fatal; a checkpoint write
// failure cancels the whole crawl and is returned.
func (s *Scheduler) Run(ctx context.Context) (map[archive.Site]*archive.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.NewString()
	summaries := make(map[archive.Site]*archive.Summary, len(s.adapters))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	for st, adapter := range s.adapters {
		crawl := newSiteCrawl(s, st, adapter, runID)

		mu.Lock()
		summaries[st] = &crawl.summary
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := crawl.run(ctx); err != nil {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				// Fatal means progress can no longer be persisted safely;
				// stop the sibling sites too.
				cancel()
			}
		}()
	}
	wg.Wait()

	return summaries, fatalErr
}
