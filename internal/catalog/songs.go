package catalog

import (
	"database/sql"
	"errors"
	"time"

	dbutil "cadenza/internal/db"
)

// Song is one physical audio file known to the catalog. MediaID is the
// stable identifier assigned by the device media index and is the natural
// key across rescans. IsFavorite and AddedAt are user-owned: reconciliation
// never overwrites them.
type Song struct {
	ID          int64
	MediaID     int64
	Title       string
	ArtistID    int64
	AlbumID     int64
	DurationMs  int64
	FilePath    string
	IsFavorite  bool
	ArtworkURI  *string
	AddedAt     int64
	TrackNumber *int
	Year        *int
	Genre       *string
	MimeType    string
	FileSize    int64
}

// SongDetail is a song with its artist and album names resolved.
type SongDetail struct {
	Song
	ArtistName string
	AlbumName  string
}

const songColumns = `id, media_id, title, artist_id, album_id, duration_ms, file_path,
	is_favorite, artwork_uri, added_at, track_number, year, genre, mime_type, file_size`

func scanSong(row interface{ Scan(...any) error }) (*Song, error) {
	var s Song
	var artwork, genre sql.NullString
	var track, year sql.NullInt64

	err := row.Scan(&s.ID, &s.MediaID, &s.Title, &s.ArtistID, &s.AlbumID, &s.DurationMs,
		&s.FilePath, &s.IsFavorite, &artwork, &s.AddedAt, &track, &year, &genre,
		&s.MimeType, &s.FileSize)
	if err != nil {
		return nil, err
	}
	s.ArtworkURI = dbutil.NullStringToPtr(artwork)
	s.TrackNumber = dbutil.NullIntToPtr(track)
	s.Year = dbutil.NullIntToPtr(year)
	s.Genre = dbutil.NullStringToPtr(genre)
	return &s, nil
}

// InsertSong inserts a new song and returns its id. AddedAt defaults to now
// when unset; IsFavorite starts false unless the caller says otherwise.
func (s *Store) InsertSong(song *Song) (int64, error) {
	if song.AddedAt == 0 {
		song.AddedAt = time.Now().UnixMilli()
	}
	result, err := s.db.Exec(`
		INSERT INTO songs (media_id, title, artist_id, album_id, duration_ms, file_path,
			is_favorite, artwork_uri, added_at, track_number, year, genre, mime_type, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, song.MediaID, song.Title, song.ArtistID, song.AlbumID, song.DurationMs, song.FilePath,
		song.IsFavorite, dbutil.PtrToNullString(song.ArtworkURI), song.AddedAt,
		dbutil.PtrToNullInt64(song.TrackNumber), dbutil.PtrToNullInt64(song.Year),
		dbutil.PtrToNullString(song.Genre), song.MimeType, song.FileSize)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	song.ID = id
	s.notifier.Publish(TopicSongs)
	return id, nil
}

// UpdateSongMetadata overwrites the file-derived fields of a song.
// is_favorite and added_at are deliberately absent from the SET list:
// they belong to the user, not the scanner.
func (s *Store) UpdateSongMetadata(song *Song) error {
	_, err := s.db.Exec(`
		UPDATE songs SET
			title = ?,
			artist_id = ?,
			album_id = ?,
			duration_ms = ?,
			file_path = ?,
			artwork_uri = ?,
			track_number = ?,
			year = ?,
			genre = ?,
			mime_type = ?,
			file_size = ?
		WHERE id = ?
	`, song.Title, song.ArtistID, song.AlbumID, song.DurationMs, song.FilePath,
		dbutil.PtrToNullString(song.ArtworkURI), dbutil.PtrToNullInt64(song.TrackNumber),
		dbutil.PtrToNullInt64(song.Year), dbutil.PtrToNullString(song.Genre),
		song.MimeType, song.FileSize, song.ID)
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicSongs)
	return nil
}

// SongByID returns a song by its id, or nil if it does not exist.
func (s *Store) SongByID(id int64) (*Song, error) {
	song, err := scanSong(s.db.QueryRow(`SELECT `+songColumns+` FROM songs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return song, err
}

// SongByMediaID returns a song by its media index id, or nil if the catalog
// has never seen it.
func (s *Store) SongByMediaID(mediaID int64) (*Song, error) {
	song, err := scanSong(s.db.QueryRow(`SELECT `+songColumns+` FROM songs WHERE media_id = ?`, mediaID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return song, err
}

func (s *Store) querySongs(query string, args ...any) ([]Song, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

// Songs returns every song, ordered by title.
func (s *Store) Songs() ([]Song, error) {
	return s.querySongs(`SELECT ` + songColumns + ` FROM songs ORDER BY title COLLATE NOCASE`)
}

// RecentlyAdded returns the most recently added songs, newest first.
func (s *Store) RecentlyAdded(limit int) ([]Song, error) {
	return s.querySongs(`SELECT `+songColumns+` FROM songs ORDER BY added_at DESC LIMIT ?`, limit)
}

// FavoriteSongs returns every favorited song, ordered by title.
func (s *Store) FavoriteSongs() ([]Song, error) {
	return s.querySongs(`SELECT ` + songColumns + ` FROM songs WHERE is_favorite = 1 ORDER BY title COLLATE NOCASE`)
}

// SongsByAlbum returns an album's songs in track order.
func (s *Store) SongsByAlbum(albumID int64) ([]Song, error) {
	return s.querySongs(`
		SELECT `+songColumns+` FROM songs
		WHERE album_id = ?
		ORDER BY (track_number IS NULL), track_number, title COLLATE NOCASE
	`, albumID)
}

// SongsByArtist returns an artist's songs ordered by title.
func (s *Store) SongsByArtist(artistID int64) ([]Song, error) {
	return s.querySongs(`
		SELECT `+songColumns+` FROM songs
		WHERE artist_id = ?
		ORDER BY title COLLATE NOCASE
	`, artistID)
}

// SearchSongs returns songs whose title contains the query, ordered by title.
func (s *Store) SearchSongs(query string) ([]Song, error) {
	return s.querySongs(`
		SELECT `+songColumns+` FROM songs
		WHERE title LIKE '%' || ? || '%'
		ORDER BY title COLLATE NOCASE
	`, query)
}

// AllMediaIDs returns a map of media id -> song id for every song.
// The reconciler uses it to find songs that vanished from the scan.
func (s *Store) AllMediaIDs() (map[int64]int64, error) {
	rows, err := s.db.Query(`SELECT media_id, id FROM songs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]int64)
	for rows.Next() {
		var mediaID, id int64
		if err := rows.Scan(&mediaID, &id); err != nil {
			return nil, err
		}
		ids[mediaID] = id
	}
	return ids, rows.Err()
}

// SetFavorite sets the favorite flag on a song.
func (s *Store) SetFavorite(songID int64, favorite bool) error {
	_, err := s.db.Exec(`UPDATE songs SET is_favorite = ? WHERE id = ?`, favorite, songID)
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicSongs)
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(songID int64) (bool, error) {
	song, err := s.SongByID(songID)
	if err != nil {
		return false, err
	}
	if song == nil {
		return false, sql.ErrNoRows
	}
	if err := s.SetFavorite(songID, !song.IsFavorite); err != nil {
		return false, err
	}
	return !song.IsFavorite, nil
}

// DeleteSong removes a song. History and playlist entries cascade; playlist
// positions after the removed entries are decremented so each playlist keeps
// a dense 0..n-1 ordering.
func (s *Store) DeleteSong(songID int64) error {
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		// Record where the song sat in each playlist before the cascade
		// deletes those rows.
		rows, err := tx.Query(`
			SELECT playlist_id, position FROM playlist_songs WHERE song_id = ?
		`, songID)
		if err != nil {
			return err
		}
		type slot struct {
			playlistID int64
			position   int
		}
		var slots []slot
		for rows.Next() {
			var sl slot
			if err := rows.Scan(&sl.playlistID, &sl.position); err != nil {
				rows.Close()
				return err
			}
			slots = append(slots, sl)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM songs WHERE id = ?`, songID); err != nil {
			return err
		}

		for _, sl := range slots {
			if _, err := tx.Exec(`
				UPDATE playlist_songs
				SET position = position - 1
				WHERE playlist_id = ? AND position > ?
			`, sl.playlistID, sl.position); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicSongs)
	s.notifier.Publish(TopicPlaylists)
	s.notifier.Publish(TopicHistory)
	return nil
}

const songDetailColumns = `s.id, s.media_id, s.title, s.artist_id, s.album_id, s.duration_ms,
	s.file_path, s.is_favorite, s.artwork_uri, s.added_at, s.track_number, s.year, s.genre,
	s.mime_type, s.file_size, ar.name, al.name`

func scanSongDetail(row interface{ Scan(...any) error }) (*SongDetail, error) {
	var d SongDetail
	var artwork, genre sql.NullString
	var track, year sql.NullInt64

	err := row.Scan(&d.ID, &d.MediaID, &d.Title, &d.ArtistID, &d.AlbumID, &d.DurationMs,
		&d.FilePath, &d.IsFavorite, &artwork, &d.AddedAt, &track, &year, &genre,
		&d.MimeType, &d.FileSize, &d.ArtistName, &d.AlbumName)
	if err != nil {
		return nil, err
	}
	d.ArtworkURI = dbutil.NullStringToPtr(artwork)
	d.TrackNumber = dbutil.NullIntToPtr(track)
	d.Year = dbutil.NullIntToPtr(year)
	d.Genre = dbutil.NullStringToPtr(genre)
	return &d, nil
}

// SongDetailByID returns a song with artist and album names resolved,
// or nil if it does not exist.
func (s *Store) SongDetailByID(id int64) (*SongDetail, error) {
	d, err := scanSongDetail(s.db.QueryRow(`
		SELECT `+songDetailColumns+`
		FROM songs s
		JOIN artists ar ON s.artist_id = ar.id
		JOIN albums al ON s.album_id = al.id
		WHERE s.id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// SongDetails returns every song with artist and album names resolved,
// ordered by title.
func (s *Store) SongDetails() ([]SongDetail, error) {
	rows, err := s.db.Query(`
		SELECT ` + songDetailColumns + `
		FROM songs s
		JOIN artists ar ON s.artist_id = ar.id
		JOIN albums al ON s.album_id = al.id
		ORDER BY s.title COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []SongDetail
	for rows.Next() {
		d, err := scanSongDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}
