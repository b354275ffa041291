package sync

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	"cadenza/internal/mediaindex"
)

const (
	PhaseScanning    = "scanning"
	PhaseReconciling = "reconciling"
	PhaseCleaning    = "cleaning"
	PhaseCounting    = "counting"
	PhaseDone        = "done"
	PhaseFailed      = "failed"
)

const progressBufferSize = 16

// Progress reports the state of a reconciliation pass.
type Progress struct {
	Phase   string
	RunID   string
	Current int
	Total   int
	Stats   *Stats // only populated when Phase == "done"
	Err     error  // only populated when Phase == "failed"
}

// Stats holds counters for a completed pass.
type Stats struct {
	Added   int
	Updated int
	Removed int
	Failed  int
}

type albumKey struct {
	name     string
	artistID int64
}

// Reconciler reconciles the media index into the catalog: it inserts new
// songs, updates file-derived fields of known ones, and removes songs whose
// media id vanished from the index. User state (favorites, added time) is
// never touched.
type Reconciler struct {
	store  *catalog.Store
	reader *mediaindex.Reader
	log    *logrus.Logger

	scanning atomic.Bool

	mu   sync.Mutex
	subs []chan Progress
}

func NewReconciler(store *catalog.Store, reader *mediaindex.Reader, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		reader: reader,
		log:    log,
	}
}

// Scanning reports whether a pass is currently running.
func (r *Reconciler) Scanning() bool {
	return r.scanning.Load()
}

// Subscribe returns a channel carrying progress updates. Sends never block;
// a slow subscriber misses intermediate updates.
func (r *Reconciler) Subscribe() <-chan Progress {
	ch := make(chan Progress, progressBufferSize)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (r *Reconciler) Unsubscribe(ch <-chan Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (r *Reconciler) publish(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		select {
		case sub <- p:
		default:
		}
	}
}

// Start launches one pass in the background.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		if err := r.Sync(ctx); err != nil {
			r.log.WithError(err).Error("library sync failed")
		}
	}()
}

// Sync runs one full pass on the caller's goroutine. A second call while a
// pass is running is a logged no-op.
func (r *Reconciler) Sync(ctx context.Context) error {
	if !r.scanning.CompareAndSwap(false, true) {
		r.log.Debug("library sync already running, skipping")
		return nil
	}
	defer r.scanning.Store(false)

	runID := uuid.NewString()
	log := r.log.WithField("run", runID)

	r.publish(Progress{Phase: PhaseScanning, RunID: runID})
	records, err := r.reader.Scan(ctx)
	if err != nil {
		r.publish(Progress{Phase: PhaseFailed, RunID: runID, Err: err})
		return err
	}
	log.WithField("records", len(records)).Info("media index scanned")

	// Caches live for exactly one pass so renames and deletions are
	// observed on the next run.
	artistCache := make(map[string]int64)
	albumCache := make(map[albumKey]int64)
	stats := &Stats{}
	seen := make(map[int64]struct{}, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			r.publish(Progress{Phase: PhaseFailed, RunID: runID, Err: err})
			return err
		}
		seen[rec.MediaID] = struct{}{}
		if err := r.apply(rec, artistCache, albumCache, stats); err != nil {
			stats.Failed++
			log.WithFields(logrus.Fields{
				"mediaID": rec.MediaID,
				"path":    rec.Path,
				"error":   err,
			}).Warn("skipping record")
		}
		r.publish(Progress{Phase: PhaseReconciling, RunID: runID, Current: i + 1, Total: len(records)})
	}

	r.publish(Progress{Phase: PhaseCleaning, RunID: runID})
	if err := r.cleanup(seen, stats, log); err != nil {
		r.publish(Progress{Phase: PhaseFailed, RunID: runID, Err: err})
		return err
	}

	r.publish(Progress{Phase: PhaseCounting, RunID: runID})
	if err := r.store.RecomputeTrackCounts(); err != nil {
		r.publish(Progress{Phase: PhaseFailed, RunID: runID, Err: err})
		return err
	}

	log.WithFields(logrus.Fields{
		"added":   stats.Added,
		"updated": stats.Updated,
		"removed": stats.Removed,
		"failed":  stats.Failed,
	}).Info("library sync complete")
	r.publish(Progress{Phase: PhaseDone, RunID: runID, Current: len(records), Total: len(records), Stats: stats})
	return nil
}

// apply upserts a single record. Artist and album are re-resolved on every
// update so tag edits move songs between artists and albums.
func (r *Reconciler) apply(rec mediaindex.MetadataRecord, artistCache map[string]int64, albumCache map[albumKey]int64, stats *Stats) error {
	artistID, err := r.resolveArtist(rec.Artist, artistCache)
	if err != nil {
		return err
	}
	albumID, err := r.resolveAlbum(rec, artistID, albumCache)
	if err != nil {
		return err
	}

	existing, err := r.store.SongByMediaID(rec.MediaID)
	if err != nil {
		return err
	}

	if existing == nil {
		song := &catalog.Song{
			MediaID:     rec.MediaID,
			Title:       rec.Title,
			ArtistID:    artistID,
			AlbumID:     albumID,
			DurationMs:  rec.DurationMs,
			FilePath:    rec.Path,
			ArtworkURI:  rec.ArtworkURI,
			TrackNumber: rec.TrackNumber,
			Year:        rec.Year,
			Genre:       rec.Genre,
			MimeType:    rec.MimeType,
			FileSize:    rec.FileSize,
		}
		if _, err := r.store.InsertSong(song); err != nil {
			return err
		}
		stats.Added++
		return nil
	}

	updated := *existing
	updated.Title = rec.Title
	updated.ArtistID = artistID
	updated.AlbumID = albumID
	updated.DurationMs = rec.DurationMs
	updated.FilePath = rec.Path
	updated.ArtworkURI = rec.ArtworkURI
	updated.TrackNumber = rec.TrackNumber
	updated.Year = rec.Year
	updated.Genre = rec.Genre
	updated.MimeType = rec.MimeType
	updated.FileSize = rec.FileSize

	if songUnchanged(existing, &updated) {
		return nil
	}
	if err := r.store.UpdateSongMetadata(&updated); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

func (r *Reconciler) resolveArtist(name string, cache map[string]int64) (int64, error) {
	if isUnknownName(name) || name == catalog.SentinelArtistName {
		return catalog.SentinelArtistID, nil
	}
	if id, ok := cache[name]; ok {
		return id, nil
	}

	artist, err := r.store.ArtistByName(name)
	if err != nil {
		return 0, err
	}
	var id int64
	if artist != nil {
		id = artist.ID
	} else {
		id, err = r.store.InsertArtist(name)
		if err != nil {
			return 0, err
		}
	}
	cache[name] = id
	return id, nil
}

func (r *Reconciler) resolveAlbum(rec mediaindex.MetadataRecord, artistID int64, cache map[albumKey]int64) (int64, error) {
	if isUnknownName(rec.Album) || rec.Album == catalog.SentinelAlbumName {
		return catalog.SentinelAlbumID, nil
	}
	key := albumKey{name: rec.Album, artistID: artistID}
	if id, ok := cache[key]; ok {
		return id, nil
	}

	album, err := r.store.AlbumByNameAndArtist(rec.Album, artistID)
	if err != nil {
		return 0, err
	}
	var id int64
	if album != nil {
		id = album.ID
	} else {
		// The first song seen for a new album donates its artwork and year.
		id, err = r.store.InsertAlbum(&catalog.Album{
			Name:       rec.Album,
			ArtistID:   artistID,
			ArtworkURI: rec.ArtworkURI,
			Year:       rec.Year,
		})
		if err != nil {
			return 0, err
		}
	}
	cache[key] = id
	return id, nil
}

// cleanup deletes songs whose media id no longer appears in the index.
func (r *Reconciler) cleanup(seen map[int64]struct{}, stats *Stats, log *logrus.Entry) error {
	known, err := r.store.AllMediaIDs()
	if err != nil {
		return err
	}
	for mediaID, songID := range known {
		if _, ok := seen[mediaID]; ok {
			continue
		}
		if err := r.store.DeleteSong(songID); err != nil {
			log.WithFields(logrus.Fields{
				"songID": songID,
				"error":  err,
			}).Warn("failed to remove vanished song")
			continue
		}
		stats.Removed++
	}
	return nil
}

func isUnknownName(name string) bool {
	return name == "" || name == "Unknown"
}

func songUnchanged(a, b *catalog.Song) bool {
	return a.Title == b.Title &&
		a.ArtistID == b.ArtistID &&
		a.AlbumID == b.AlbumID &&
		a.DurationMs == b.DurationMs &&
		a.FilePath == b.FilePath &&
		equalStringPtr(a.ArtworkURI, b.ArtworkURI) &&
		equalIntPtr(a.TrackNumber, b.TrackNumber) &&
		equalIntPtr(a.Year, b.Year) &&
		equalStringPtr(a.Genre, b.Genre) &&
		a.MimeType == b.MimeType &&
		a.FileSize == b.FileSize
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
