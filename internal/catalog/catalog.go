package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	dbutil "cadenza/internal/db"
)

const (
	appName    = "cadenza"
	dbFileName = "cadenza.db"
)

// Store is the catalog: normalized song/artist/album/playlist/history/settings
// persistence plus change notifications for reactive reads.
type Store struct {
	db       *sql.DB
	notifier *Notifier
	log      *logrus.Logger
}

// Open opens (or creates) the catalog database at the default XDG data path.
func Open(log *logrus.Logger) (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath, log)
}

// OpenAt opens (or creates) the catalog database at the given path,
// initializes the schema and guarantees the sentinel rows exist.
func OpenAt(path string, log *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	store, err := newStore(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenMemory opens an in-memory catalog. Used by tests and the scan report
// command.
func OpenMemory(log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	// A second connection to a :memory: db would see a different database.
	db.SetMaxOpenConns(1)

	store, err := newStore(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newStore(db *sql.DB, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(db); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := dbutil.WithTx(db, insertDefaults); err != nil {
		return nil, fmt.Errorf("insert defaults: %w", err)
	}

	return &Store{
		db:       db,
		notifier: NewNotifier(),
		log:      log,
	}, nil
}

func (s *Store) Close() error {
	s.notifier.Close()
	return s.db.Close()
}

// DB exposes the underlying handle for collaborating mutator packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Notifier exposes the change notifier for reactive reads.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

// Notify publishes a change on the given topic. Mutators outside this
// package call it after committing.
func (s *Store) Notify(topic Topic) {
	s.notifier.Publish(topic)
}

// Counts returns the number of songs, artists and albums in the catalog.
// Sentinel rows are not counted.
func (s *Store) Counts() (songs, artists, albums int, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&songs); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM artists WHERE id != ?`, SentinelArtistID).Scan(&artists); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM albums WHERE id != ?`, SentinelAlbumID).Scan(&albums); err != nil {
		return 0, 0, 0, err
	}
	return songs, artists, albums, nil
}
