package catalog

import (
	"database/sql"
)

const currentSchemaVersion = 1

// Reserved rows that must exist before any other write. Songs whose
// artist or album cannot be resolved reference these.
const (
	SentinelArtistID = 1
	SentinelAlbumID  = 1

	SentinelArtistName = "Unknown Artist"
	SentinelAlbumName  = "Unknown Album"
)

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name);

		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			artist_id INTEGER NOT NULL DEFAULT 1 REFERENCES artists(id) ON DELETE SET DEFAULT,
			artwork_uri TEXT,
			year INTEGER,
			track_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_albums_name ON albums(name);
		CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);

		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			media_id INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			artist_id INTEGER NOT NULL DEFAULT 1 REFERENCES artists(id) ON DELETE SET DEFAULT,
			album_id INTEGER NOT NULL DEFAULT 1 REFERENCES albums(id) ON DELETE SET DEFAULT,
			duration_ms INTEGER NOT NULL,
			file_path TEXT NOT NULL,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			artwork_uri TEXT,
			added_at INTEGER NOT NULL,
			track_number INTEGER,
			year INTEGER,
			genre TEXT,
			mime_type TEXT NOT NULL,
			file_size INTEGER NOT NULL
		);

		-- file_path is indexed but NOT unique: the media index may hand out
		-- the same path under different ids across rescans.
		CREATE INDEX IF NOT EXISTS idx_songs_file_path ON songs(file_path);
		CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_id);
		CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album_id);
		CREATE INDEX IF NOT EXISTS idx_songs_favorite ON songs(is_favorite);
		CREATE INDEX IF NOT EXISTS idx_songs_added_at ON songs(added_at);

		CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_playlists_created_at ON playlists(created_at);

		CREATE TABLE IF NOT EXISTS playlist_songs (
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (playlist_id, song_id)
		);

		CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist ON playlist_songs(playlist_id, position);
		CREATE INDEX IF NOT EXISTS idx_playlist_songs_song ON playlist_songs(song_id);

		CREATE TABLE IF NOT EXISTS history_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
			played_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_played_at ON history_entries(played_at);
		CREATE INDEX IF NOT EXISTS idx_history_song ON history_entries(song_id);

		CREATE TABLE IF NOT EXISTS app_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			theme_mode INTEGER NOT NULL DEFAULT 0,
			use_dynamic_color INTEGER NOT NULL DEFAULT 1,
			shuffle_enabled INTEGER NOT NULL DEFAULT 0,
			repeat_mode INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}

// insertDefaults makes the sentinel artist, sentinel album and the settings
// row exist. Idempotent and safe to invoke on every open.
func insertDefaults(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO artists (id, name) VALUES (?, ?)
	`, SentinelArtistID, SentinelArtistName); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO albums (id, name, artist_id) VALUES (?, ?, ?)
	`, SentinelAlbumID, SentinelAlbumName, SentinelArtistID); err != nil {
		return err
	}

	_, err := tx.Exec(`
		INSERT OR IGNORE INTO app_settings (id, theme_mode, use_dynamic_color, shuffle_enabled, repeat_mode)
		VALUES (1, ?, 1, 0, ?)
	`, ThemeSystem, RepeatOff)
	return err
}
