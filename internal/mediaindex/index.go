package mediaindex

import (
	"context"
	"time"
)

// Entry is one raw row from a media index: tag values as the source reported
// them, before any normalization. Title, Artist and Album may be blank or
// carry the "<unknown>" marker; TrackNumber and Year may be zero or negative.
type Entry struct {
	MediaID     int64
	Title       string
	Artist      string
	Album       string
	Duration    time.Duration
	Path        string
	TrackNumber int
	Year        int
	Genre       string
	MimeType    string
	FileSize    int64
	DateAdded   time.Time
	Artwork     []byte // embedded picture data, nil if none
}

// Index is an external media source. Implementations return entries newest
// first, pre-filtered to playable audio of at least the configured minimum
// duration.
type Index interface {
	Query(ctx context.Context) ([]Entry, error)
}
