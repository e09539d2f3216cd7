package scheduler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// Fixed "now" for every test: June 2024, so windows from 2023-06 and earlier
// are past the default done lag.
var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeAdapter struct {
	site      archive.Site
	seeds     []archive.FrontierEntry
	links     map[string][]archive.FrontierEntry
	articles  map[string]archive.ArticleRecord
	parseFail map[string]bool
}

func (a *fakeAdapter) Site() archive.Site { return a.site }

func (a *fakeAdapter) SeedURLs(_ time.Time) []archive.FrontierEntry { return a.seeds }

func (a *fakeAdapter) ExtractLinks(entry archive.FrontierEntry, _ archive.FetchResult) ([]archive.FrontierEntry, error) {
	if entry.Kind == archive.PageList && a.parseFail[entry.URL] {
		return nil, &archive.ParseError{Site: a.site, URL: entry.URL, Err: errors.New("unexpected feed shape")}
	}
	return a.links[entry.URL], nil
}

func (a *fakeAdapter) ExtractArticle(entry archive.FrontierEntry, _ archive.FetchResult) (archive.ArticleRecord, error) {
	if a.parseFail[entry.URL] {
		return archive.ArticleRecord{}, &archive.ParseError{Site: a.site, URL: entry.URL, Err: errors.New("no title")}
	}
	art, ok := a.articles[entry.URL]
	if !ok {
		return archive.ArticleRecord{}, &archive.ParseError{Site: a.site, URL: entry.URL, Err: errors.New("unknown article")}
	}
	return art, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req archive.FetchRequest) (archive.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	if err, ok := f.errs[req.URL]; ok {
		return archive.FetchResult{}, err
	}
	body, ok := f.bodies[req.URL]
	if !ok {
		body = []byte("body of " + req.URL)
	}
	return archive.FetchResult{URL: req.URL, StatusCode: 200, Body: body}, nil
}

func (f *fakeFetcher) fetchCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (s *memStore) Put(data []byte, kind archive.MediaKind) (archive.StoredContent, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.objects[hash]
	if !exists {
		s.objects[hash] = append([]byte(nil), data...)
	}
	return archive.StoredContent{Hash: hash, Size: int64(len(data)), Kind: kind}, !exists, nil
}

func (s *memStore) Open(hash string, _ archive.MediaKind) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[hash]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memIndex struct {
	mu      sync.Mutex
	records map[string]archive.ArchiveRecord
	done    map[string]bool
}

func newMemIndex() *memIndex {
	return &memIndex{records: make(map[string]archive.ArchiveRecord), done: make(map[string]bool)}
}

func (i *memIndex) Record(rec archive.ArchiveRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[string(rec.Site)+"/"+rec.LogicalID] = rec
	return nil
}

func (i *memIndex) Lookup(s archive.Site, id string) (archive.ArchiveRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	rec, ok := i.records[string(s)+"/"+id]
	if !ok {
		return archive.ArchiveRecord{}, archive.ErrNotFound
	}
	return rec, nil
}

func (i *memIndex) MarkWindowDone(s archive.Site, window string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.done[string(s)+"-"+window] = true
	return nil
}

func (i *memIndex) WindowDone(s archive.Site, window string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done[string(s)+"-"+window], nil
}

type memCheckpoints struct {
	mu      sync.Mutex
	saved   map[archive.Site]archive.Checkpoint
	saveErr error
	saves   int
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{saved: make(map[archive.Site]archive.Checkpoint)}
}

func (c *memCheckpoints) Save(cp archive.Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.saved[cp.Site] = cp
	return nil
}

func (c *memCheckpoints) Load(site archive.Site) (archive.Checkpoint, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.saved[site]
	return cp, ok, nil
}

type testRig struct {
	adapter     *fakeAdapter
	fetcher     *fakeFetcher
	content     *memStore
	index       *memIndex
	checkpoints *memCheckpoints
	sched       *Scheduler
}

func newTestRig(t *testing.T, adapter *fakeAdapter, cfg Config) *testRig {
	t.Helper()
	r := &testRig{
		adapter:     adapter,
		fetcher:     newFakeFetcher(),
		content:     newMemStore(),
		index:       newMemIndex(),
		checkpoints: newMemCheckpoints(),
	}
	r.sched = New(
		map[archive.Site]archive.SiteAdapter{adapter.site: adapter},
		r.fetcher, r.content, r.index, r.checkpoints,
		fixedClock{now: testNow}, cfg, nil,
	)
	return r
}

func listEntry(url, window string) archive.FrontierEntry {
	return archive.FrontierEntry{Site: archive.SiteEnglish, URL: url, Kind: archive.PageList, Window: window}
}

func articleEntry(url string) archive.FrontierEntry {
	return archive.FrontierEntry{Site: archive.SiteEnglish, URL: url, Kind: archive.PageArticle, Depth: 1}
}

func imageEntry(url string) archive.FrontierEntry {
	return archive.FrontierEntry{Site: archive.SiteEnglish, URL: url, Kind: archive.PageImage, Depth: 2}
}

func simpleArticle(url, id string) archive.ArticleRecord {
	return archive.ArticleRecord{
		Site:        archive.SiteEnglish,
		CanonicalID: id,
		Title:       "Title " + id,
		Body:        "Body " + id,
		SourceURL:   url,
		PublishedAt: time.Date(2015, time.June, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestCrawlSiteEndToEnd(t *testing.T) {
	t.Parallel()

	const (
		list = "https://www.rfa.org/feed?window=2015-06"
		a1   = "https://www.rfa.org/english/news/a1.html"
		a2   = "https://www.rfa.org/english/news/a2.html"
		img  = "https://www.rfa.org/english/images/shared.jpg"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(a1), articleEntry(a2)},
			// Both articles reference the same image.
			a1: {imageEntry(img)},
			a2: {imageEntry(img)},
		},
		articles: map[string]archive.ArticleRecord{
			a1: simpleArticle(a1, "english/news/a1.html"),
			a2: simpleArticle(a2, "english/news/a2.html"),
		},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 3})

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	sum := summaries[archive.SiteEnglish]
	require.NotNil(t, sum)
	require.Equal(t, 4, sum.Fetched, "list, two articles, one image")
	require.Zero(t, sum.Errored)
	require.Zero(t, sum.ParseFailed)

	// The shared image is discovered twice but fetched once.
	require.Equal(t, 1, r.fetcher.fetchCount(img))

	for _, id := range []string{"english/news/a1.html", "english/news/a2.html"} {
		rec, lerr := r.index.Lookup(archive.SiteEnglish, id)
		require.NoError(t, lerr)
		require.Equal(t, archive.MediaPage, rec.Kind)
		require.NotEmpty(t, rec.ContentHash)
	}

	// Window produced articles and has no continuation, so it is done.
	done, derr := r.index.WindowDone(archive.SiteEnglish, "2015-06")
	require.NoError(t, derr)
	require.True(t, done)

	// The final checkpoint drains the frontier completely.
	cp, ok, cerr := r.checkpoints.Load(archive.SiteEnglish)
	require.NoError(t, cerr)
	require.True(t, ok)
	require.Empty(t, cp.Frontier)
	require.Len(t, cp.Visited, 4)
}

func TestParseFailureDoesNotStopSiblings(t *testing.T) {
	t.Parallel()

	const (
		list = "https://www.rfa.org/feed?window=2015-06"
		bad  = "https://www.rfa.org/english/news/bad.html"
		good = "https://www.rfa.org/english/news/good.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(bad), articleEntry(good)},
		},
		articles: map[string]archive.ArticleRecord{
			good: simpleArticle(good, "english/news/good.html"),
		},
		parseFail: map[string]bool{bad: true},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 2})

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	sum := summaries[archive.SiteEnglish]
	require.Equal(t, 1, sum.ParseFailed)
	require.Equal(t, 2, sum.Fetched, "list and the healthy article")

	_, err = r.index.Lookup(archive.SiteEnglish, "english/news/good.html")
	require.NoError(t, err)
	_, err = r.index.Lookup(archive.SiteEnglish, "english/news/bad.html")
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestIdenticalBodiesDeduplicated(t *testing.T) {
	t.Parallel()

	const (
		list = "https://www.rfa.org/feed?window=2015-06"
		a1   = "https://www.rfa.org/english/news/a1.html"
		a2   = "https://www.rfa.org/english/news/a1-repost.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(a1), articleEntry(a2)},
		},
		articles: map[string]archive.ArticleRecord{
			a1: simpleArticle(a1, "english/news/a1.html"),
			a2: simpleArticle(a2, "english/news/a1-repost.html"),
		},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1})
	r.fetcher.bodies[a1] = []byte("identical bytes")
	r.fetcher.bodies[a2] = []byte("identical bytes")

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	sum := summaries[archive.SiteEnglish]
	require.Equal(t, 1, sum.SkippedDuplicate)
	require.Equal(t, 2, sum.Fetched, "list plus first copy")

	// Both logical ids resolve to the same stored object.
	r1, err := r.index.Lookup(archive.SiteEnglish, "english/news/a1.html")
	require.NoError(t, err)
	r2, err := r.index.Lookup(archive.SiteEnglish, "english/news/a1-repost.html")
	require.NoError(t, err)
	require.Equal(t, r1.ContentHash, r2.ContentHash)
}

func TestResumeSkipsVisitedAndKeepsFrontier(t *testing.T) {
	t.Parallel()

	const (
		list    = "https://www.rfa.org/feed?window=2015-06"
		visited = "https://www.rfa.org/english/news/already.html"
		pending = "https://www.rfa.org/english/news/pending.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(visited), articleEntry(pending)},
		},
		articles: map[string]archive.ArticleRecord{
			pending: simpleArticle(pending, "english/news/pending.html"),
		},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 2})
	r.checkpoints.saved[archive.SiteEnglish] = archive.Checkpoint{
		RunID:    "prior-run",
		Site:     archive.SiteEnglish,
		Visited:  []string{visited},
		Frontier: []archive.FrontierEntry{articleEntry(pending)},
	}

	_, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, r.fetcher.fetchCount(visited), "checkpointed URL must not be refetched")
	require.Equal(t, 1, r.fetcher.fetchCount(pending))
}

func TestCheckpointFailureIsFatal(t *testing.T) {
	t.Parallel()

	const list = "https://www.rfa.org/feed?window=2015-06"

	entries := make([]archive.FrontierEntry, 0, 10)
	articles := make(map[string]archive.ArticleRecord, 10)
	for i := 0; i < 10; i++ {
		u := fmt.Sprintf("https://www.rfa.org/english/news/a%d.html", i)
		entries = append(entries, articleEntry(u))
		articles[u] = simpleArticle(u, fmt.Sprintf("english/news/a%d.html", i))
	}
	adapter := &fakeAdapter{
		site:     archive.SiteEnglish,
		seeds:    []archive.FrontierEntry{listEntry(list, "2015-06")},
		links:    map[string][]archive.FrontierEntry{list: entries},
		articles: articles,
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1, CheckpointEvery: 1})
	r.checkpoints.saveErr = &archive.CheckpointError{Site: archive.SiteEnglish, Err: errors.New("disk full")}

	_, err := r.sched.Run(context.Background())

	var cpErr *archive.CheckpointError
	require.ErrorAs(t, err, &cpErr)
}

func TestDoneWindowsSkippedAtSeed(t *testing.T) {
	t.Parallel()

	const (
		doneList = "https://www.rfa.org/feed?window=2015-06"
		openList = "https://www.rfa.org/feed?window=2015-07"
	)

	adapter := &fakeAdapter{
		site: archive.SiteEnglish,
		seeds: []archive.FrontierEntry{
			listEntry(doneList, "2015-06"),
			listEntry(openList, "2015-07"),
		},
		links: map[string][]archive.FrontierEntry{},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1})
	require.NoError(t, r.index.MarkWindowDone(archive.SiteEnglish, "2015-06"))

	_, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, r.fetcher.fetchCount(doneList))
	require.Equal(t, 1, r.fetcher.fetchCount(openList))
}

func TestEmptyWindowDoneOnlyWhenOldEnough(t *testing.T) {
	t.Parallel()

	const (
		oldList    = "https://www.rfa.org/feed?window=2015-06"
		recentList = "https://www.rfa.org/feed?window=2024-05"
	)

	adapter := &fakeAdapter{
		site: archive.SiteEnglish,
		seeds: []archive.FrontierEntry{
			listEntry(oldList, "2015-06"),
			listEntry(recentList, "2024-05"),
		},
		links: map[string][]archive.FrontierEntry{},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 2})

	_, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	done, err := r.index.WindowDone(archive.SiteEnglish, "2015-06")
	require.NoError(t, err)
	require.True(t, done, "an old empty window will never gain articles")

	done, err = r.index.WindowDone(archive.SiteEnglish, "2024-05")
	require.NoError(t, err)
	require.False(t, done, "a recent empty window may still fill in")
}

func TestNotFoundCountedNotFatal(t *testing.T) {
	t.Parallel()

	const (
		list = "https://www.rfa.org/feed?window=2015-06"
		gone = "https://www.rfa.org/english/news/gone.html"
		live = "https://www.rfa.org/english/news/live.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(gone), articleEntry(live)},
		},
		articles: map[string]archive.ArticleRecord{
			live: simpleArticle(live, "english/news/live.html"),
		},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 2})
	r.fetcher.errs[gone] = fmt.Errorf("fetch %s: %w", gone, archive.ErrNotFound)

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	sum := summaries[archive.SiteEnglish]
	require.Equal(t, 1, sum.NotFound)
	require.Equal(t, 2, sum.Fetched)
	require.Zero(t, sum.Errored)
}

func TestFetchErrorCountedPerURL(t *testing.T) {
	t.Parallel()

	const (
		list   = "https://www.rfa.org/feed?window=2015-06"
		broken = "https://www.rfa.org/english/news/broken.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(broken)},
		},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1})
	r.fetcher.errs[broken] = &archive.FetchError{URL: broken, Attempts: 3, Err: errors.New("connection reset")}

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summaries[archive.SiteEnglish].Errored)
}

func TestListParseFailureCounted(t *testing.T) {
	t.Parallel()

	const list = "https://www.rfa.org/feed?window=2015-06"

	adapter := &fakeAdapter{
		site:      archive.SiteEnglish,
		seeds:     []archive.FrontierEntry{listEntry(list, "2015-06")},
		parseFail: map[string]bool{list: true},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1})

	summaries, err := r.sched.Run(context.Background())
	require.NoError(t, err)

	sum := summaries[archive.SiteEnglish]
	require.Equal(t, 1, sum.ParseFailed)
	require.Zero(t, sum.Fetched)

	done, derr := r.index.WindowDone(archive.SiteEnglish, "2015-06")
	require.NoError(t, derr)
	require.False(t, done, "a window whose feed failed to parse stays open")
}

func TestPreCanceledRunFetchesNothing(t *testing.T) {
	t.Parallel()

	const list = "https://www.rfa.org/feed?window=2015-06"

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{},
	}
	r := newTestRig(t, adapter, Config{WorkersPerSite: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.sched.Run(ctx)
	require.NoError(t, err)

	require.Zero(t, r.fetcher.fetchCount(list))
	cp, ok, cerr := r.checkpoints.Load(archive.SiteEnglish)
	require.NoError(t, cerr)
	require.True(t, ok)
	require.Empty(t, cp.Visited)
}

// cancelingFetcher cancels the crawl while fetching one chosen URL,
// simulating a shutdown signal that lands mid-fetch.
type cancelingFetcher struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
	target string
}

func (f *cancelingFetcher) Fetch(ctx context.Context, req archive.FetchRequest) (archive.FetchResult, error) {
	if req.URL == f.target {
		f.cancel()
		return archive.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	}
	return f.inner.Fetch(ctx, req)
}

func TestCancelMidFetchKeepsEntryResumable(t *testing.T) {
	t.Parallel()

	const (
		list = "https://www.rfa.org/feed?window=2015-06"
		a1   = "https://www.rfa.org/english/news/a1.html"
	)

	adapter := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(list, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			list: {articleEntry(a1)},
		},
		articles: map[string]archive.ArticleRecord{
			a1: simpleArticle(a1, "english/news/a1.html"),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := newFakeFetcher()
	fetcher := &cancelingFetcher{inner: inner, cancel: cancel, target: a1}
	content := newMemStore()
	index := newMemIndex()
	checkpoints := newMemCheckpoints()
	sched := New(
		map[archive.Site]archive.SiteAdapter{adapter.site: adapter},
		fetcher, content, index, checkpoints,
		fixedClock{now: testNow}, Config{WorkersPerSite: 1}, nil,
	)

	_, err := sched.Run(ctx)
	require.NoError(t, err)

	// The list page completed before the cancellation, so its window is
	// already marked done and will not be re-seeded.
	done, derr := index.WindowDone(archive.SiteEnglish, "2015-06")
	require.NoError(t, derr)
	require.True(t, done)

	// The article whose fetch was cut short must survive in the checkpoint:
	// either completed (visited) or still pending (frontier). Losing it from
	// both would drop it from the archive permanently.
	cp, ok, cerr := checkpoints.Load(archive.SiteEnglish)
	require.NoError(t, cerr)
	require.True(t, ok)

	inVisited := false
	for _, u := range cp.Visited {
		if u == a1 {
			inVisited = true
		}
	}
	inFrontier := false
	for _, e := range cp.Frontier {
		if e.URL == a1 {
			inFrontier = true
		}
	}
	require.True(t, inVisited || inFrontier, "canceled article lost from resume state")
	require.True(t, inFrontier, "unfetched article belongs in the frontier, not visited")
	require.False(t, inVisited)
}

func TestSitesCrawlIndependently(t *testing.T) {
	t.Parallel()

	const (
		enList = "https://www.rfa.org/feed?site=en&window=2015-06"
		zhList = "https://www.rfa.org/feed?site=zh&window=2015-06"
		enArt  = "https://www.rfa.org/english/news/a.html"
	)

	en := &fakeAdapter{
		site:  archive.SiteEnglish,
		seeds: []archive.FrontierEntry{listEntry(enList, "2015-06")},
		links: map[string][]archive.FrontierEntry{
			enList: {articleEntry(enArt)},
		},
		articles: map[string]archive.ArticleRecord{
			enArt: simpleArticle(enArt, "english/news/a.html"),
		},
	}
	zh := &fakeAdapter{
		site: archive.SiteMandarin,
		seeds: []archive.FrontierEntry{
			{Site: archive.SiteMandarin, URL: zhList, Kind: archive.PageList, Window: "2015-06"},
		},
		parseFail: map[string]bool{zhList: true},
	}

	fetcher := newFakeFetcher()
	checkpoints := newMemCheckpoints()
	index := newMemIndex()
	sched := New(
		map[archive.Site]archive.SiteAdapter{en.site: en, zh.site: zh},
		fetcher, newMemStore(), index, checkpoints,
		fixedClock{now: testNow}, Config{WorkersPerSite: 2}, nil,
	)

	summaries, err := sched.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, summaries[archive.SiteEnglish].Fetched)
	require.Equal(t, 1, summaries[archive.SiteMandarin].ParseFailed)

	_, ok, err := checkpoints.Load(archive.SiteEnglish)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = checkpoints.Load(archive.SiteMandarin)
	require.NoError(t, err)
	require.True(t, ok)
}
