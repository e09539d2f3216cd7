package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfarchive/rfarchive/internal/archive"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func pageRecord(site archive.Site, id, hash string, published time.Time) archive.ArchiveRecord {
	return archive.ArchiveRecord{
		Site:        site,
		LogicalID:   id,
		ContentHash: hash,
		Kind:        archive.MediaPage,
		SourceURL:   "https://www.rfa.org/" + id,
		Title:       "Title for " + id,
		FetchedAt:   time.Now().UTC(),
		PublishedAt: published,
	}
}

func TestRecordAndLookup(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	rec := pageRecord(archive.SiteEnglish, "english/news/a1.html", "hash-a1", time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, db.Record(rec))

	got, err := db.Lookup(archive.SiteEnglish, "english/news/a1.html")
	require.NoError(t, err)
	require.Equal(t, rec.ContentHash, got.ContentHash)
	require.Equal(t, rec.Title, got.Title)
}

func TestLookupMissing(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := db.Lookup(archive.SiteEnglish, "english/no-such-page.html")
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestRecordValidatesKey(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.Error(t, db.Record(archive.ArchiveRecord{Site: archive.SiteEnglish}))
	require.Error(t, db.Record(archive.ArchiveRecord{LogicalID: "english/a.html"}))
}

func TestRecordUpsertKeepsNewerHash(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	published := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Record(pageRecord(archive.SiteUyghur, "uyghur/news/a.html", "hash-old", published)))
	require.NoError(t, db.Record(pageRecord(archive.SiteUyghur, "uyghur/news/a.html", "hash-new", published)))

	got, err := db.Lookup(archive.SiteUyghur, "uyghur/news/a.html")
	require.NoError(t, err)
	require.Equal(t, "hash-new", got.ContentHash)

	// Both hashes remain addressable back to the logical id.
	oldRefs, err := db.ByHash("hash-old")
	require.NoError(t, err)
	require.Len(t, oldRefs, 1)
	newRefs, err := db.ByHash("hash-new")
	require.NoError(t, err)
	require.Len(t, newRefs, 1)
}

func TestByHashListsAllReferencingRecords(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	shared := archive.ArchiveRecord{
		Site: archive.SiteEnglish, LogicalID: "english/images/logo.png",
		ContentHash: "hash-shared", Kind: archive.MediaImage,
	}
	require.NoError(t, db.Record(shared))
	shared.Site = archive.SiteMandarin
	shared.LogicalID = "mandarin/images/logo.png"
	require.NoError(t, db.Record(shared))

	refs, err := db.ByHash("hash-shared")
	require.NoError(t, err)
	require.Len(t, refs, 2)
}

func TestListSiteOrdersByPublishDate(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	base := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	require.NoError(t, db.Record(pageRecord(archive.SiteKorean, "korean/news/c.html", "hc", base.AddDate(0, 0, 20))))
	require.NoError(t, db.Record(pageRecord(archive.SiteKorean, "korean/news/a.html", "ha", base)))
	require.NoError(t, db.Record(pageRecord(archive.SiteKorean, "korean/news/b.html", "hb", base.AddDate(0, 0, 10))))
	// Another site must not leak into the listing.
	require.NoError(t, db.Record(pageRecord(archive.SiteLao, "lao/news/x.html", "hx", base)))

	recs, err := db.ListSite(archive.SiteKorean, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "korean/news/a.html", recs[0].LogicalID)
	require.Equal(t, "korean/news/b.html", recs[1].LogicalID)
	require.Equal(t, "korean/news/c.html", recs[2].LogicalID)

	limited, err := db.ListSite(archive.SiteKorean, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestWindowDoneRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	done, err := db.WindowDone(archive.SiteTibetan, "2019-07")
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, db.MarkWindowDone(archive.SiteTibetan, "2019-07"))

	done, err = db.WindowDone(archive.SiteTibetan, "2019-07")
	require.NoError(t, err)
	require.True(t, done)

	// Same window on a different site stays open.
	done, err = db.WindowDone(archive.SiteKhmer, "2019-07")
	require.NoError(t, err)
	require.False(t, done)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.db")
	db, err := Open(path)
	require.NoError(t, err)

	rec := pageRecord(archive.SiteBurmese, "burmese/news/p.html", "hp", time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, db.Record(rec))
	require.NoError(t, db.MarkWindowDone(archive.SiteBurmese, "2022-08"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Lookup(archive.SiteBurmese, "burmese/news/p.html")
	require.NoError(t, err)
	require.Equal(t, "hp", got.ContentHash)

	done, err := db.WindowDone(archive.SiteBurmese, "2022-08")
	require.NoError(t, err)
	require.True(t, done)
}
