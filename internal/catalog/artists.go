package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	dbutil "cadenza/internal/db"
)

// Artist is a name key that albums and songs reference. The sentinel
// "Unknown Artist" always exists at SentinelArtistID.
type Artist struct {
	ID   int64
	Name string
}

// ArtistWithAlbums is an artist together with their albums.
type ArtistWithAlbums struct {
	Artist
	Albums []Album
}

// ArtistByID returns an artist by id, or nil if it does not exist.
func (s *Store) ArtistByID(id int64) (*Artist, error) {
	var a Artist
	err := s.db.QueryRow(`SELECT id, name FROM artists WHERE id = ?`, id).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ArtistByName returns an artist by exact name, or nil if none matches.
func (s *Store) ArtistByName(name string) (*Artist, error) {
	var a Artist
	err := s.db.QueryRow(`SELECT id, name FROM artists WHERE name = ? LIMIT 1`, name).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertArtist inserts a new artist and returns its id.
func (s *Store) InsertArtist(name string) (int64, error) {
	result, err := s.db.Exec(`INSERT INTO artists (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.notifier.Publish(TopicArtists)
	return id, nil
}

// Artists returns all artists ordered by name.
func (s *Store) Artists() ([]Artist, error) {
	rows, err := s.db.Query(`SELECT id, name FROM artists ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// SearchArtists returns artists whose name contains the query.
func (s *Store) SearchArtists(query string) ([]Artist, error) {
	rows, err := s.db.Query(`
		SELECT id, name FROM artists
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name COLLATE NOCASE
	`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// ArtistWithAlbums returns an artist and their albums, or nil if the artist
// does not exist.
func (s *Store) ArtistWithAlbums(id int64) (*ArtistWithAlbums, error) {
	artist, err := s.ArtistByID(id)
	if err != nil || artist == nil {
		return nil, err
	}
	albums, err := s.AlbumsByArtist(id)
	if err != nil {
		return nil, err
	}
	return &ArtistWithAlbums{Artist: *artist, Albums: albums}, nil
}

// DeleteArtist removes an artist. Songs and albums that referenced it are
// reassigned to the sentinel so no dangling reference is ever visible.
// The sentinel itself cannot be deleted.
func (s *Store) DeleteArtist(id int64) error {
	if id == SentinelArtistID {
		return fmt.Errorf("artist %d is reserved", id)
	}
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE songs SET artist_id = ? WHERE artist_id = ?`, SentinelArtistID, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE albums SET artist_id = ? WHERE artist_id = ?`, SentinelArtistID, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM artists WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicArtists)
	s.notifier.Publish(TopicSongs)
	s.notifier.Publish(TopicAlbums)
	return nil
}
