package playback

import "cadenza/internal/catalog"

// Item is one queue entry handed to the engine: everything it needs to play
// and display a song without touching the catalog.
type Item struct {
	SongID     int64
	URI        string
	Title      string
	Artist     string
	Album      string
	ArtworkURI *string
}

// EventKind discriminates engine events.
type EventKind int

const (
	// EventPlayingChanged reports a play/pause flip.
	EventPlayingChanged EventKind = iota
	// EventItemChanged reports that another queue item became current.
	EventItemChanged
)

// Event is an asynchronous state change reported by the engine.
type Event struct {
	Kind    EventKind
	Playing bool
	Index   int
	Item    *Item
}

// Engine is the playback backend: it owns the queue, the transport state and
// the play position. Implementations report changes on Events; the channel
// closes when the engine shuts down.
type Engine interface {
	SetQueue(items []Item, startIndex int) error
	AddItemAt(index int, item Item) error

	Play() error
	Pause() error
	SeekTo(positionMs int64) error
	Next() error
	Previous() error

	SetShuffle(enabled bool) error
	SetRepeat(mode catalog.RepeatMode) error

	// CurrentIndex returns the queue index of the current item, -1 when the
	// queue is empty or nothing has been made current yet.
	CurrentIndex() int
	PositionMs() int64
	DurationMs() int64

	Events() <-chan Event
	Close() error
}
