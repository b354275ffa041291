package mediaindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	unknownTitle = "Unknown Title"
	unknownValue = "Unknown"

	// indexUnknownMarker is the placeholder some media sources report for
	// missing artist and album tags.
	indexUnknownMarker = "<unknown>"
)

// MetadataRecord is one normalized song description as produced by a scan.
// Artist and Album are names, not ids; the reconciler resolves them.
type MetadataRecord struct {
	MediaID     int64
	Title       string
	Artist      string
	Album       string
	DurationMs  int64
	Path        string
	TrackNumber *int
	Year        *int
	Genre       *string
	MimeType    string
	FileSize    int64
	ArtworkURI  *string
}

// Reader turns raw index entries into normalized metadata records and
// extracts embedded artwork into a cache directory.
type Reader struct {
	index      Index
	artworkDir string
	log        *logrus.Logger
}

func NewReader(index Index, artworkDir string, log *logrus.Logger) *Reader {
	return &Reader{
		index:      index,
		artworkDir: artworkDir,
		log:        log,
	}
}

// Scan runs one finite pass over the index. An index failure aborts the scan;
// artwork extraction failures are logged and the record keeps nil artwork.
func (r *Reader) Scan(ctx context.Context) ([]MetadataRecord, error) {
	entries, err := r.index.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query media index: %w", err)
	}

	records := make([]MetadataRecord, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records = append(records, r.normalize(entry))
	}
	return records, nil
}

func (r *Reader) normalize(entry Entry) MetadataRecord {
	rec := MetadataRecord{
		MediaID:    entry.MediaID,
		Title:      normalizeTitle(entry.Title, entry.Path),
		Artist:     normalizeName(entry.Artist),
		Album:      normalizeName(entry.Album),
		DurationMs: entry.Duration.Milliseconds(),
		Path:       entry.Path,
		MimeType:   entry.MimeType,
		FileSize:   entry.FileSize,
	}
	if rec.MimeType == "" {
		rec.MimeType = "audio/*"
	}
	if entry.TrackNumber > 0 {
		track := entry.TrackNumber
		rec.TrackNumber = &track
	}
	if entry.Year > 0 {
		year := entry.Year
		rec.Year = &year
	}
	if genre := strings.TrimSpace(entry.Genre); genre != "" {
		rec.Genre = &genre
	}
	if len(entry.Artwork) > 0 {
		if uri, err := r.writeArtwork(entry.MediaID, entry.Artwork); err != nil {
			r.log.WithFields(logrus.Fields{
				"mediaID": entry.MediaID,
				"path":    entry.Path,
				"error":   err,
			}).Warn("failed to extract artwork")
		} else {
			rec.ArtworkURI = &uri
		}
	}
	return rec
}

func (r *Reader) writeArtwork(mediaID int64, data []byte) (string, error) {
	if err := os.MkdirAll(r.artworkDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.artworkDir, fmt.Sprintf("artwork_%d.jpg", mediaID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// normalizeTitle falls back from the tag title to the filename without
// extension, then to the unknown placeholder.
func normalizeTitle(title, path string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	base := filepath.Base(path)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" && name != "." && name != string(filepath.Separator) {
		return name
	}
	return unknownTitle
}

// normalizeName maps blank and "<unknown>" artist/album values to the
// canonical unknown placeholder.
func normalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, indexUnknownMarker) {
		return unknownValue
	}
	return trimmed
}
