package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	"cadenza/internal/mediaindex"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

type fakeIndex struct {
	entries []mediaindex.Entry
	err     error
}

func (f *fakeIndex) Query(context.Context) ([]mediaindex.Entry, error) {
	return f.entries, f.err
}

func setup(t *testing.T, idx *fakeIndex) (*catalog.Store, *Reconciler) {
	t.Helper()

	store, err := catalog.OpenAt(filepath.Join(t.TempDir(), "catalog.db"), testLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reader := mediaindex.NewReader(idx, t.TempDir(), testLogger())
	return store, NewReconciler(store, reader, testLogger())
}

func entry(mediaID int64, title, artist, album string) mediaindex.Entry {
	return mediaindex.Entry{
		MediaID:  mediaID,
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: 3 * time.Minute,
		Path:     "/music/" + title + ".mp3",
		MimeType: "audio/mpeg",
		FileSize: 1024,
	}
}

func TestSync_FirstScanPopulatesCatalog(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "So What", "Miles Davis", "Kind of Blue"),
		entry(2, "Blue in Green", "Miles Davis", "Kind of Blue"),
		entry(3, "Mystery", "", ""),
	}}
	store, rec := setup(t, idx)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	songs, artists, albums, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if songs != 3 || artists != 1 || albums != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1", songs, artists, albums)
	}

	// The untagged song lands on the sentinels.
	mystery, err := store.SongByMediaID(3)
	if err != nil {
		t.Fatalf("SongByMediaID failed: %v", err)
	}
	if mystery.ArtistID != catalog.SentinelArtistID || mystery.AlbumID != catalog.SentinelAlbumID {
		t.Errorf("untagged song artist/album = %d/%d, want sentinels", mystery.ArtistID, mystery.AlbumID)
	}

	// Track counts were recomputed.
	album, err := store.AlbumByNameAndArtist("Kind of Blue", artistIDByName(t, store, "Miles Davis"))
	if err != nil || album == nil {
		t.Fatalf("album lookup failed: %v / %+v", err, album)
	}
	if album.TrackCount != 2 {
		t.Errorf("track count = %d, want 2", album.TrackCount)
	}
}

func artistIDByName(t *testing.T, store *catalog.Store, name string) int64 {
	t.Helper()
	artist, err := store.ArtistByName(name)
	if err != nil || artist == nil {
		t.Fatalf("artist %q not found: %v", name, err)
	}
	return artist.ID
}

func TestSync_IsIdempotent(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Song A", "Artist", "Album"),
		entry(2, "Song B", "Artist", "Album"),
	}}
	store, rec := setup(t, idx)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	songs, artists, albums, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if songs != 2 || artists != 1 || albums != 1 {
		t.Errorf("counts after resync = %d/%d/%d, want 2/1/1", songs, artists, albums)
	}
}

func TestSync_PreservesUserStateOnUpdate(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Old Title", "Artist", "Album"),
	}}
	store, rec := setup(t, idx)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	song, _ := store.SongByMediaID(1)
	if err := store.SetFavorite(song.ID, true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}
	originalAdded := song.AddedAt

	idx.entries[0].Title = "New Title"
	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	got, _ := store.SongByMediaID(1)
	if got.Title != "New Title" {
		t.Errorf("title = %q, want New Title", got.Title)
	}
	if !got.IsFavorite {
		t.Error("favorite flag lost on metadata update")
	}
	if got.AddedAt != originalAdded {
		t.Errorf("added time changed: %d -> %d", originalAdded, got.AddedAt)
	}
}

func TestSync_RetagMovesSongBetweenArtists(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Song", "Wrong Artist", "Album"),
	}}
	store, rec := setup(t, idx)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	idx.entries[0].Artist = "Right Artist"
	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	song, _ := store.SongByMediaID(1)
	if song.ArtistID != artistIDByName(t, store, "Right Artist") {
		t.Error("song not moved to the new artist")
	}
}

func TestSync_RemovesVanishedSongs(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Keeper", "Artist", "Album"),
		entry(2, "Goner", "Artist", "Album"),
	}}
	store, rec := setup(t, idx)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	idx.entries = idx.entries[:1]
	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if gone, _ := store.SongByMediaID(2); gone != nil {
		t.Error("vanished song still in catalog")
	}
	if kept, _ := store.SongByMediaID(1); kept == nil {
		t.Error("surviving song was removed")
	}
}

func TestSync_SecondConcurrentCallIsNoOp(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Song", "Artist", "Album"),
	}}
	store, rec := setup(t, idx)

	rec.scanning.Store(true)
	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error for no-op: %v", err)
	}
	rec.scanning.Store(false)

	songs, _, _, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if songs != 0 {
		t.Errorf("no-op sync wrote %d songs", songs)
	}
}

func TestSync_PublishesProgress(t *testing.T) {
	idx := &fakeIndex{entries: []mediaindex.Entry{
		entry(1, "Song", "Artist", "Album"),
	}}
	_, rec := setup(t, idx)

	ch := rec.Subscribe()
	defer rec.Unsubscribe(ch)

	if err := rec.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	var phases []string
	var final Progress
	for {
		select {
		case p := <-ch:
			phases = append(phases, p.Phase)
			final = p
			if p.Phase == PhaseDone || p.Phase == PhaseFailed {
				goto check
			}
		case <-time.After(2 * time.Second):
			t.Fatal("progress stream never reached a terminal phase")
		}
	}

check:
	if phases[0] != PhaseScanning {
		t.Errorf("first phase = %q, want scanning", phases[0])
	}
	if final.Phase != PhaseDone {
		t.Fatalf("final phase = %q, want done", final.Phase)
	}
	if final.Stats == nil || final.Stats.Added != 1 {
		t.Errorf("final stats = %+v, want 1 added", final.Stats)
	}
	if final.RunID == "" {
		t.Error("run id not set")
	}
}

func TestSync_IndexFailureReported(t *testing.T) {
	idx := &fakeIndex{err: context.DeadlineExceeded}
	_, rec := setup(t, idx)

	ch := rec.Subscribe()
	defer rec.Unsubscribe(ch)

	if err := rec.Sync(context.Background()); err == nil {
		t.Fatal("expected sync to fail")
	}

	for {
		select {
		case p := <-ch:
			if p.Phase == PhaseFailed {
				if p.Err == nil {
					t.Error("failed progress carries no error")
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no failed phase published")
		}
	}
}
