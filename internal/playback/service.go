package playback

import "cadenza/internal/catalog"

// State is a snapshot of the coordinator: the current song with transport
// and mode flags. Song is nil when nothing has ever been queued.
type State struct {
	Song       *catalog.Song
	Playing    bool
	PositionMs int64
	DurationMs int64
	Shuffle    bool
	Repeat     catalog.RepeatMode
}

// Service coordinates playback: it translates catalog songs into engine
// queue items, mirrors engine events back into an observable state, and
// persists mode changes to the settings row.
type Service interface {
	// PlaySong replaces the queue with the single song. When the song is
	// already current and forceRestart is false, playback just resumes
	// without restarting.
	PlaySong(song *catalog.Song, forceRestart bool) error

	// PlaySongs replaces the queue with the given songs, optionally
	// shuffled, and starts at the first item.
	PlaySongs(songs []catalog.Song, shuffled bool) error

	// PlayNext inserts the song directly after the current item, or at the
	// front when nothing is current. Repeated calls stack most-recent
	// first.
	PlayNext(song *catalog.Song) error

	PlayPause() error
	SeekTo(positionMs int64) error
	SkipNext() error
	SkipPrevious() error

	SetShuffle(enabled bool) error
	SetRepeat(mode catalog.RepeatMode) error
	CycleRepeat() (catalog.RepeatMode, error)

	State() State
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)
	Close() error
}
