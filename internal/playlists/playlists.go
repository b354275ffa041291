package playlists

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	dbutil "cadenza/internal/db"
)

// Playlist is a named, ordered collection of songs.
type Playlist struct {
	ID        int64
	Name      string
	CreatedAt int64
	SongCount int
}

// PlaylistWithSongs is a playlist together with its songs in position order.
type PlaylistWithSongs struct {
	Playlist
	Songs []catalog.Song
}

// Service holds the playlist mutators and reads. Positions within a playlist
// are kept dense (0..n-1) across every mutation.
type Service struct {
	store *catalog.Store
	log   *logrus.Logger
}

func NewService(store *catalog.Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

// Create makes a new playlist, optionally seeded with one song at position 0.
func (s *Service) Create(name string, initialSongID *int64) (int64, error) {
	if name == "" {
		return 0, errors.New("playlist name is empty")
	}

	var id int64
	err := dbutil.WithTx(s.store.DB(), func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO playlists (name, created_at) VALUES (?, ?)
		`, name, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		if err != nil {
			return err
		}
		if initialSongID == nil {
			return nil
		}
		_, err = tx.Exec(`
			INSERT INTO playlist_songs (playlist_id, song_id, position, added_at)
			VALUES (?, ?, 0, ?)
		`, id, *initialSongID, time.Now().UnixMilli())
		return err
	})
	if err != nil {
		return 0, err
	}
	s.store.Notify(catalog.TopicPlaylists)
	return id, nil
}

func (s *Service) Rename(id int64, name string) error {
	if name == "" {
		return errors.New("playlist name is empty")
	}
	result, err := s.store.DB().Exec(`UPDATE playlists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("playlist %d not found", id)
	}
	s.store.Notify(catalog.TopicPlaylists)
	return nil
}

// Delete removes a playlist; its song entries go with it via the cascade.
func (s *Service) Delete(id int64) error {
	if _, err := s.store.DB().Exec(`DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return err
	}
	s.store.Notify(catalog.TopicPlaylists)
	return nil
}

// AddSong appends a song at the end of a playlist. Adding a song that is
// already present is a no-op.
func (s *Service) AddSong(playlistID, songID int64) error {
	err := dbutil.WithTx(s.store.DB(), func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ? AND song_id = ?
		`, playlistID, songID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}
		_, err = tx.Exec(`
			INSERT INTO playlist_songs (playlist_id, song_id, position, added_at)
			SELECT ?, ?, COALESCE(MAX(position) + 1, 0), ?
			FROM playlist_songs WHERE playlist_id = ?
		`, playlistID, songID, time.Now().UnixMilli(), playlistID)
		return err
	})
	if err != nil {
		return err
	}
	s.store.Notify(catalog.TopicPlaylists)
	return nil
}

// RemoveSong deletes one entry and closes the position gap it leaves.
func (s *Service) RemoveSong(playlistID, songID int64) error {
	err := dbutil.WithTx(s.store.DB(), func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRow(`
			SELECT position FROM playlist_songs WHERE playlist_id = ? AND song_id = ?
		`, playlistID, songID).Scan(&position)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?
		`, playlistID, songID); err != nil {
			return err
		}
		_, err = tx.Exec(`
			UPDATE playlist_songs SET position = position - 1
			WHERE playlist_id = ? AND position > ?
		`, playlistID, position)
		return err
	})
	if err != nil {
		return err
	}
	s.store.Notify(catalog.TopicPlaylists)
	return nil
}

// Clear removes every song from a playlist but keeps the playlist itself.
func (s *Service) Clear(playlistID int64) error {
	if _, err := s.store.DB().Exec(`
		DELETE FROM playlist_songs WHERE playlist_id = ?
	`, playlistID); err != nil {
		return err
	}
	s.store.Notify(catalog.TopicPlaylists)
	return nil
}

// All returns every playlist with its song count, newest first.
func (s *Service) All() ([]Playlist, error) {
	rows, err := s.store.DB().Query(`
		SELECT p.id, p.name, p.created_at, COUNT(ps.song_id)
		FROM playlists p
		LEFT JOIN playlist_songs ps ON ps.playlist_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.SongCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// ByID returns a playlist with its songs in position order, nil if missing.
func (s *Service) ByID(id int64) (*PlaylistWithSongs, error) {
	var p Playlist
	err := s.store.DB().QueryRow(`
		SELECT p.id, p.name, p.created_at, COUNT(ps.song_id)
		FROM playlists p
		LEFT JOIN playlist_songs ps ON ps.playlist_id = p.id
		WHERE p.id = ?
		GROUP BY p.id
	`, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.SongCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	songs, err := s.Songs(id)
	if err != nil {
		return nil, err
	}
	return &PlaylistWithSongs{Playlist: p, Songs: songs}, nil
}

// Songs returns the songs of a playlist in position order.
func (s *Service) Songs(playlistID int64) ([]catalog.Song, error) {
	rows, err := s.store.DB().Query(`
		SELECT s.id, s.media_id, s.title, s.artist_id, s.album_id, s.duration_ms,
		       s.file_path, s.is_favorite, s.artwork_uri, s.added_at,
		       s.track_number, s.year, s.genre, s.mime_type, s.file_size
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []catalog.Song
	for rows.Next() {
		var song catalog.Song
		var favorite int
		var artwork, genre sql.NullString
		var track, year sql.NullInt64
		if err := rows.Scan(&song.ID, &song.MediaID, &song.Title, &song.ArtistID,
			&song.AlbumID, &song.DurationMs, &song.FilePath, &favorite, &artwork,
			&song.AddedAt, &track, &year, &genre, &song.MimeType, &song.FileSize); err != nil {
			return nil, err
		}
		song.IsFavorite = favorite != 0
		song.ArtworkURI = dbutil.NullStringToPtr(artwork)
		song.TrackNumber = dbutil.NullIntToPtr(track)
		song.Year = dbutil.NullIntToPtr(year)
		song.Genre = dbutil.NullStringToPtr(genre)
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// Containing returns the playlists that include the given song.
func (s *Service) Containing(songID int64) ([]Playlist, error) {
	rows, err := s.store.DB().Query(`
		SELECT p.id, p.name, p.created_at,
		       (SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = p.id)
		FROM playlists p
		JOIN playlist_songs ps ON ps.playlist_id = p.id AND ps.song_id = ?
		ORDER BY p.created_at DESC
	`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.SongCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}
