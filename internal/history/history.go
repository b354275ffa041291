package history

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	dbutil "cadenza/internal/db"
)

// Entry is one listen event.
type Entry struct {
	ID       int64
	SongID   int64
	PlayedAt int64
}

// EntryWithSong is a listen event with its song resolved.
type EntryWithSong struct {
	Entry
	Song catalog.Song
}

// Service records and reads listen history. A repeat listen of the same song
// inside the dedup window is dropped so restarts and seeks don't pile up
// duplicate entries.
type Service struct {
	store        *catalog.Store
	log          *logrus.Logger
	dedupWindow  time.Duration
	defaultLimit int

	now func() time.Time
}

func NewService(store *catalog.Store, log *logrus.Logger, dedupWindow time.Duration, defaultLimit int) *Service {
	return &Service{
		store:        store,
		log:          log,
		dedupWindow:  dedupWindow,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// RecordListen inserts a listen event unless the same song was already
// recorded inside the dedup window.
func (s *Service) RecordListen(songID int64) error {
	nowMs := s.now().UnixMilli()
	cutoff := nowMs - s.dedupWindow.Milliseconds()

	var recent int
	err := s.store.DB().QueryRow(`
		SELECT COUNT(*) FROM history_entries
		WHERE song_id = ? AND played_at > ?
	`, songID, cutoff).Scan(&recent)
	if err != nil {
		return err
	}
	if recent > 0 {
		s.log.WithField("songID", songID).Debug("listen within dedup window, skipping")
		return nil
	}

	if _, err := s.store.DB().Exec(`
		INSERT INTO history_entries (song_id, played_at) VALUES (?, ?)
	`, songID, nowMs); err != nil {
		return err
	}
	s.store.Notify(catalog.TopicHistory)
	return nil
}

// Recent returns the latest listens with their songs, newest first. A
// non-positive limit falls back to the service default.
func (s *Service) Recent(limit int) ([]EntryWithSong, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	rows, err := s.store.DB().Query(`
		SELECT h.id, h.song_id, h.played_at,
		       s.id, s.media_id, s.title, s.artist_id, s.album_id, s.duration_ms,
		       s.file_path, s.is_favorite, s.artwork_uri, s.added_at,
		       s.track_number, s.year, s.genre, s.mime_type, s.file_size
		FROM history_entries h
		JOIN songs s ON s.id = h.song_id
		ORDER BY h.played_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EntryWithSong
	for rows.Next() {
		var e EntryWithSong
		var favorite int
		var artwork, genre sql.NullString
		var track, year sql.NullInt64
		if err := rows.Scan(&e.ID, &e.SongID, &e.PlayedAt,
			&e.Song.ID, &e.Song.MediaID, &e.Song.Title, &e.Song.ArtistID,
			&e.Song.AlbumID, &e.Song.DurationMs, &e.Song.FilePath, &favorite,
			&artwork, &e.Song.AddedAt, &track, &year, &genre,
			&e.Song.MimeType, &e.Song.FileSize); err != nil {
			return nil, err
		}
		e.Song.IsFavorite = favorite != 0
		e.Song.ArtworkURI = dbutil.NullStringToPtr(artwork)
		e.Song.TrackNumber = dbutil.NullIntToPtr(track)
		e.Song.Year = dbutil.NullIntToPtr(year)
		e.Song.Genre = dbutil.NullStringToPtr(genre)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear drops the whole history.
func (s *Service) Clear() error {
	if _, err := s.store.DB().Exec(`DELETE FROM history_entries`); err != nil {
		return err
	}
	s.store.Notify(catalog.TopicHistory)
	return nil
}

// DeleteOlderThan removes entries played before the cutoff.
func (s *Service) DeleteOlderThan(cutoff time.Time) error {
	if _, err := s.store.DB().Exec(`
		DELETE FROM history_entries WHERE played_at < ?
	`, cutoff.UnixMilli()); err != nil {
		return err
	}
	s.store.Notify(catalog.TopicHistory)
	return nil
}
