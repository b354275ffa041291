package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	dbutil "cadenza/internal/db"
)

// Album groups songs under a name and an artist. TrackCount is derived:
// it is recomputed from the songs table after each sync pass, never
// hand-maintained.
type Album struct {
	ID         int64
	Name       string
	ArtistID   int64
	ArtworkURI *string
	Year       *int
	TrackCount int
}

// AlbumWithSongs is an album together with its songs in track order.
type AlbumWithSongs struct {
	Album
	Songs []Song
}

func scanAlbum(row interface{ Scan(...any) error }) (*Album, error) {
	var a Album
	var artwork sql.NullString
	var year sql.NullInt64

	err := row.Scan(&a.ID, &a.Name, &a.ArtistID, &artwork, &year, &a.TrackCount)
	if err != nil {
		return nil, err
	}
	a.ArtworkURI = dbutil.NullStringToPtr(artwork)
	a.Year = dbutil.NullIntToPtr(year)
	return &a, nil
}

const albumColumns = `id, name, artist_id, artwork_uri, year, track_count`

// AlbumByID returns an album by id, or nil if it does not exist.
func (s *Store) AlbumByID(id int64) (*Album, error) {
	a, err := scanAlbum(s.db.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// AlbumByNameAndArtist returns an album by exact name and artist,
// or nil if none matches.
func (s *Store) AlbumByNameAndArtist(name string, artistID int64) (*Album, error) {
	a, err := scanAlbum(s.db.QueryRow(`
		SELECT `+albumColumns+` FROM albums
		WHERE name = ? AND artist_id = ?
		LIMIT 1
	`, name, artistID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// InsertAlbum inserts a new album and returns its id.
func (s *Store) InsertAlbum(album *Album) (int64, error) {
	if album.ArtistID == 0 {
		album.ArtistID = SentinelArtistID
	}
	result, err := s.db.Exec(`
		INSERT INTO albums (name, artist_id, artwork_uri, year)
		VALUES (?, ?, ?, ?)
	`, album.Name, album.ArtistID, dbutil.PtrToNullString(album.ArtworkURI), dbutil.PtrToNullInt64(album.Year))
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	album.ID = id
	s.notifier.Publish(TopicAlbums)
	return id, nil
}

func (s *Store) queryAlbums(query string, args ...any) ([]Album, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

// Albums returns all albums ordered by name.
func (s *Store) Albums() ([]Album, error) {
	return s.queryAlbums(`SELECT ` + albumColumns + ` FROM albums ORDER BY name COLLATE NOCASE`)
}

// AlbumsByArtist returns an artist's albums ordered by name.
func (s *Store) AlbumsByArtist(artistID int64) ([]Album, error) {
	return s.queryAlbums(`
		SELECT `+albumColumns+` FROM albums
		WHERE artist_id = ?
		ORDER BY name COLLATE NOCASE
	`, artistID)
}

// SearchAlbums returns albums whose name contains the query.
func (s *Store) SearchAlbums(query string) ([]Album, error) {
	return s.queryAlbums(`
		SELECT `+albumColumns+` FROM albums
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name COLLATE NOCASE
	`, query)
}

// AlbumWithSongs returns an album and its songs, or nil if the album does
// not exist.
func (s *Store) AlbumWithSongs(id int64) (*AlbumWithSongs, error) {
	album, err := s.AlbumByID(id)
	if err != nil || album == nil {
		return nil, err
	}
	songs, err := s.SongsByAlbum(id)
	if err != nil {
		return nil, err
	}
	return &AlbumWithSongs{Album: *album, Songs: songs}, nil
}

// RecomputeTrackCounts refreshes every album's track count from the songs
// table in a single aggregate pass.
func (s *Store) RecomputeTrackCounts() error {
	_, err := s.db.Exec(`
		UPDATE albums SET track_count = (
			SELECT COUNT(*) FROM songs WHERE album_id = albums.id
		)
	`)
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicAlbums)
	return nil
}

// DeleteAlbum removes an album, reassigning its songs to the sentinel album.
// The sentinel itself cannot be deleted.
func (s *Store) DeleteAlbum(id int64) error {
	if id == SentinelAlbumID {
		return fmt.Errorf("album %d is reserved", id)
	}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE songs SET album_id = ? WHERE album_id = ?`, SentinelAlbumID, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM albums WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicAlbums)
	s.notifier.Publish(TopicSongs)
	return nil
}
