package catalog

import (
	"testing"
)

func insertTestSong(t *testing.T, store *Store, mediaID int64, title string) *Song {
	t.Helper()

	song := &Song{
		MediaID:    mediaID,
		Title:      title,
		ArtistID:   SentinelArtistID,
		AlbumID:    SentinelAlbumID,
		DurationMs: 200000,
		FilePath:   "/music/" + title + ".mp3",
		MimeType:   "audio/mpeg",
		FileSize:   1024,
	}
	if _, err := store.InsertSong(song); err != nil {
		t.Fatalf("InsertSong(%q) failed: %v", title, err)
	}
	return song
}

func TestInsertSong_SetsAddedAt(t *testing.T) {
	store := setupStore(t)

	song := insertTestSong(t, store, 1, "First")
	if song.AddedAt == 0 {
		t.Error("AddedAt not set on insert")
	}

	got, err := store.SongByMediaID(1)
	if err != nil {
		t.Fatalf("SongByMediaID failed: %v", err)
	}
	if got == nil {
		t.Fatal("song not found by media id")
	}
	if got.Title != "First" || got.IsFavorite {
		t.Errorf("song = %+v", got)
	}
}

func TestSongByMediaID_MissingReturnsNil(t *testing.T) {
	store := setupStore(t)

	got, err := store.SongByMediaID(999)
	if err != nil {
		t.Fatalf("SongByMediaID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestInsertSong_DuplicateMediaIDRejected(t *testing.T) {
	store := setupStore(t)

	insertTestSong(t, store, 5, "One")

	dup := &Song{
		MediaID: 5, Title: "Two", ArtistID: SentinelArtistID, AlbumID: SentinelAlbumID,
		DurationMs: 1000, FilePath: "/music/two.mp3", MimeType: "audio/mpeg", FileSize: 1,
	}
	if _, err := store.InsertSong(dup); err == nil {
		t.Error("expected unique constraint error for duplicate media id")
	}
}

func TestUpdateSongMetadata_PreservesUserFields(t *testing.T) {
	store := setupStore(t)

	song := insertTestSong(t, store, 7, "Old")
	if err := store.SetFavorite(song.ID, true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}
	originalAdded := song.AddedAt

	song.Title = "New"
	song.DurationMs = 123456
	if err := store.UpdateSongMetadata(song); err != nil {
		t.Fatalf("UpdateSongMetadata failed: %v", err)
	}

	got, err := store.SongByID(song.ID)
	if err != nil {
		t.Fatalf("SongByID failed: %v", err)
	}
	if got.Title != "New" || got.DurationMs != 123456 {
		t.Errorf("metadata not updated: %+v", got)
	}
	if !got.IsFavorite {
		t.Error("IsFavorite was clobbered by metadata update")
	}
	if got.AddedAt != originalAdded {
		t.Errorf("AddedAt changed: %d -> %d", originalAdded, got.AddedAt)
	}
}

func TestToggleFavorite(t *testing.T) {
	store := setupStore(t)
	song := insertTestSong(t, store, 2, "Fav")

	fav, err := store.ToggleFavorite(song.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !fav {
		t.Error("first toggle should favorite")
	}

	fav, err = store.ToggleFavorite(song.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if fav {
		t.Error("second toggle should unfavorite")
	}

	favs, err := store.FavoriteSongs()
	if err != nil {
		t.Fatalf("FavoriteSongs failed: %v", err)
	}
	if len(favs) != 0 {
		t.Errorf("favorites = %d, want 0", len(favs))
	}
}

func TestDeleteSong_CascadesAndClosesGaps(t *testing.T) {
	store := setupStore(t)

	a := insertTestSong(t, store, 1, "A")
	b := insertTestSong(t, store, 2, "B")
	c := insertTestSong(t, store, 3, "C")

	// Build a playlist [A, B, C] and a history entry for B directly.
	res, err := store.DB().Exec(`INSERT INTO playlists (name, created_at) VALUES ('Mix', 0)`)
	if err != nil {
		t.Fatalf("insert playlist failed: %v", err)
	}
	plID, _ := res.LastInsertId()
	for i, s := range []*Song{a, b, c} {
		if _, err := store.DB().Exec(`
			INSERT INTO playlist_songs (playlist_id, song_id, position, added_at)
			VALUES (?, ?, ?, 0)
		`, plID, s.ID, i); err != nil {
			t.Fatalf("insert playlist song failed: %v", err)
		}
	}
	if _, err := store.DB().Exec(`
		INSERT INTO history_entries (song_id, played_at) VALUES (?, 1000)
	`, b.ID); err != nil {
		t.Fatalf("insert history failed: %v", err)
	}

	if err := store.DeleteSong(b.ID); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}

	// History entry cascaded.
	var historyCount int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM history_entries`).Scan(&historyCount); err != nil {
		t.Fatalf("count history failed: %v", err)
	}
	if historyCount != 0 {
		t.Errorf("history count = %d, want 0", historyCount)
	}

	// Remaining playlist positions are dense: A at 0, C at 1.
	rows, err := store.DB().Query(`
		SELECT song_id, position FROM playlist_songs WHERE playlist_id = ? ORDER BY position
	`, plID)
	if err != nil {
		t.Fatalf("query playlist failed: %v", err)
	}
	defer rows.Close()

	type entry struct {
		songID   int64
		position int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.songID, &e.position); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("playlist entries = %d, want 2", len(entries))
	}
	if entries[0].songID != a.ID || entries[0].position != 0 {
		t.Errorf("entry 0 = %+v, want song %d at 0", entries[0], a.ID)
	}
	if entries[1].songID != c.ID || entries[1].position != 1 {
		t.Errorf("entry 1 = %+v, want song %d at 1", entries[1], c.ID)
	}
}

func TestSongDetail_ResolvesNames(t *testing.T) {
	store := setupStore(t)

	artistID, err := store.InsertArtist("Herbie Hancock")
	if err != nil {
		t.Fatalf("InsertArtist failed: %v", err)
	}
	albumID, err := store.InsertAlbum(&Album{Name: "Head Hunters", ArtistID: artistID})
	if err != nil {
		t.Fatalf("InsertAlbum failed: %v", err)
	}

	song := &Song{
		MediaID: 42, Title: "Chameleon", ArtistID: artistID, AlbumID: albumID,
		DurationMs: 941000, FilePath: "/music/chameleon.flac", MimeType: "audio/flac", FileSize: 1,
	}
	if _, err := store.InsertSong(song); err != nil {
		t.Fatalf("InsertSong failed: %v", err)
	}

	detail, err := store.SongDetailByID(song.ID)
	if err != nil {
		t.Fatalf("SongDetailByID failed: %v", err)
	}
	if detail == nil {
		t.Fatal("detail not found")
	}
	if detail.ArtistName != "Herbie Hancock" || detail.AlbumName != "Head Hunters" {
		t.Errorf("detail names = %q/%q", detail.ArtistName, detail.AlbumName)
	}
}

func TestSearchSongs(t *testing.T) {
	store := setupStore(t)
	insertTestSong(t, store, 1, "Blue in Green")
	insertTestSong(t, store, 2, "Blue Monday")
	insertTestSong(t, store, 3, "So What")

	results, err := store.SearchSongs("Blue")
	if err != nil {
		t.Fatalf("SearchSongs failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
}

func TestRecomputeTrackCounts(t *testing.T) {
	store := setupStore(t)

	artistID, _ := store.InsertArtist("Artist")
	albumID, _ := store.InsertAlbum(&Album{Name: "Album", ArtistID: artistID})

	for i := int64(1); i <= 3; i++ {
		song := &Song{
			MediaID: i, Title: "T", ArtistID: artistID, AlbumID: albumID,
			DurationMs: 1000, FilePath: "/music/t.mp3", MimeType: "audio/mpeg", FileSize: 1,
		}
		if _, err := store.InsertSong(song); err != nil {
			t.Fatalf("InsertSong failed: %v", err)
		}
	}

	if err := store.RecomputeTrackCounts(); err != nil {
		t.Fatalf("RecomputeTrackCounts failed: %v", err)
	}

	album, err := store.AlbumByID(albumID)
	if err != nil {
		t.Fatalf("AlbumByID failed: %v", err)
	}
	if album.TrackCount != 3 {
		t.Errorf("track count = %d, want 3", album.TrackCount)
	}
}

func TestDeleteArtist_ReassignsToSentinel(t *testing.T) {
	store := setupStore(t)

	artistID, _ := store.InsertArtist("Doomed")
	albumID, _ := store.InsertAlbum(&Album{Name: "Album", ArtistID: artistID})
	song := &Song{
		MediaID: 1, Title: "S", ArtistID: artistID, AlbumID: albumID,
		DurationMs: 1000, FilePath: "/music/s.mp3", MimeType: "audio/mpeg", FileSize: 1,
	}
	if _, err := store.InsertSong(song); err != nil {
		t.Fatalf("InsertSong failed: %v", err)
	}

	if err := store.DeleteArtist(artistID); err != nil {
		t.Fatalf("DeleteArtist failed: %v", err)
	}

	got, _ := store.SongByID(song.ID)
	if got.ArtistID != SentinelArtistID {
		t.Errorf("song artist = %d, want sentinel %d", got.ArtistID, SentinelArtistID)
	}
	album, _ := store.AlbumByID(albumID)
	if album.ArtistID != SentinelArtistID {
		t.Errorf("album artist = %d, want sentinel %d", album.ArtistID, SentinelArtistID)
	}
}

func TestDeleteArtist_SentinelRefused(t *testing.T) {
	store := setupStore(t)

	if err := store.DeleteArtist(SentinelArtistID); err == nil {
		t.Error("deleting the sentinel artist should fail")
	}
	if err := store.DeleteAlbum(SentinelAlbumID); err == nil {
		t.Error("deleting the sentinel album should fail")
	}
}
