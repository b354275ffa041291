package mediaindex

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtWAV  = ".wav"
	ExtM4A  = ".m4a"
)

// FSIndex is a filesystem-backed Index walking one or more source
// directories and reading tags with dhowden/tag.
type FSIndex struct {
	sources     []string
	minDuration time.Duration
	log         *logrus.Logger
}

func NewFSIndex(sources []string, minDuration time.Duration, log *logrus.Logger) *FSIndex {
	return &FSIndex{
		sources:     sources,
		minDuration: minDuration,
		log:         log,
	}
}

// Query walks the sources and returns entries newest first. Unreadable files
// and directories are skipped; only a cancelled context aborts the walk.
func (ix *FSIndex) Query(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	for _, src := range ix.sources {
		err := filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Skip any walk errors - intentionally continuing to scan other paths
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !IsAudioFile(path) {
				return nil
			}

			entry, ok := ix.readEntry(path, d)
			if !ok {
				return nil
			}
			if entry.Duration < ix.minDuration {
				ix.log.WithFields(logrus.Fields{
					"path":     path,
					"duration": entry.Duration,
				}).Debug("skipping short audio file")
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DateAdded.After(entries[j].DateAdded)
	})
	return entries, nil
}

// readEntry builds an Entry from one audio file. Returns false when the file
// cannot be stat'd or opened; tag read failures still produce an entry with
// blank tag fields so the filename fallback can apply downstream.
func (ix *FSIndex) readEntry(path string, d os.DirEntry) (Entry, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := d.Info()
	if err != nil {
		return Entry{}, false
	}

	entry := Entry{
		MediaID:   MediaID(abs),
		Path:      abs,
		MimeType:  MimeTypeFor(path),
		FileSize:  info.Size(),
		DateAdded: info.ModTime(),
	}

	dur, err := fileDuration(abs)
	if err != nil {
		ix.log.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("failed to determine duration")
	}
	entry.Duration = dur

	f, err := os.Open(abs)
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		ix.log.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Debug("no readable tags")
		return entry, true
	}

	entry.Title = m.Title()
	entry.Artist = m.Artist()
	entry.Album = m.Album()
	entry.Genre = m.Genre()
	entry.TrackNumber, _ = m.Track()
	entry.Year = m.Year()
	if pic := m.Picture(); pic != nil {
		entry.Artwork = pic.Data
	}
	return entry, true
}

// MediaID derives a stable external id from the absolute file path. The id
// survives rescans as long as the file does not move.
func MediaID(absPath string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(absPath))
	return int64(h.Sum64()) //nolint:gosec // deliberate wraparound into a signed id
}

// IsAudioFile returns true if the path has a supported audio extension.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtFLAC, ExtWAV, ExtM4A:
		return true
	}
	return false
}

// MimeTypeFor maps a file extension to its MIME type, empty if unknown.
func MimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return "audio/mpeg"
	case ExtFLAC:
		return "audio/flac"
	case ExtWAV:
		return "audio/wav"
	case ExtM4A:
		return "audio/mp4"
	}
	return ""
}
