package playback

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
)

// positionPollInterval is how often subscribers receive a fresh position
// snapshot while something is playing.
const positionPollInterval = 500 * time.Millisecond

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.RWMutex

	engine Engine
	store  *catalog.Store
	log    *logrus.Logger

	current *catalog.Song
	playing bool
	shuffle bool
	repeat  catalog.RepeatMode

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a playback service over the given engine. Persisted shuffle
// and repeat settings are restored onto the engine immediately.
func New(engine Engine, store *catalog.Store, log *logrus.Logger) (Service, error) {
	s := &serviceImpl{
		engine: engine,
		store:  store,
		log:    log,
		done:   make(chan struct{}),
	}

	settings, err := store.Settings()
	if err != nil {
		return nil, err
	}
	s.shuffle = settings.ShuffleEnabled
	s.repeat = settings.RepeatMode
	if err := engine.SetShuffle(s.shuffle); err != nil {
		return nil, err
	}
	if err := engine.SetRepeat(s.repeat); err != nil {
		return nil, err
	}

	go s.eventLoop()
	go s.pollLoop()
	return s, nil
}

func (s *serviceImpl) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.engine.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *serviceImpl) handleEvent(ev Event) {
	s.mu.Lock()
	switch ev.Kind {
	case EventPlayingChanged:
		s.playing = ev.Playing
	case EventItemChanged:
		s.playing = ev.Playing
		if ev.Item != nil {
			song, err := s.store.SongByID(ev.Item.SongID)
			if err != nil || song == nil {
				s.log.WithFields(logrus.Fields{
					"songID": ev.Item.SongID,
					"error":  err,
				}).Warn("current queue item not in catalog")
			} else {
				s.current = song
			}
		}
	}
	s.mu.Unlock()
	s.publish()
}

func (s *serviceImpl) pollLoop() {
	ticker := time.NewTicker(positionPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			playing := s.playing
			s.mu.RUnlock()
			if playing {
				s.publish()
			}
		}
	}
}

func (s *serviceImpl) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *serviceImpl) stateLocked() State {
	return State{
		Song:       s.current,
		Playing:    s.playing,
		PositionMs: s.engine.PositionMs(),
		DurationMs: s.durationLocked(),
		Shuffle:    s.shuffle,
		Repeat:     s.repeat,
	}
}

// durationLocked prefers the engine's notion of duration and falls back to
// the catalog value when the engine has none.
func (s *serviceImpl) durationLocked() int64 {
	if d := s.engine.DurationMs(); d > 0 {
		return d
	}
	if s.current != nil {
		return s.current.DurationMs
	}
	return 0
}

func (s *serviceImpl) publish() {
	s.mu.RLock()
	state := s.stateLocked()
	s.mu.RUnlock()

	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.send(state)
	}
}

func (s *serviceImpl) itemFor(song *catalog.Song) Item {
	item := Item{
		SongID:     song.ID,
		URI:        song.FilePath,
		Title:      song.Title,
		ArtworkURI: song.ArtworkURI,
	}
	detail, err := s.store.SongDetailByID(song.ID)
	if err == nil && detail != nil {
		item.Artist = detail.ArtistName
		item.Album = detail.AlbumName
	}
	return item
}

func (s *serviceImpl) PlaySong(song *catalog.Song, forceRestart bool) error {
	s.mu.RLock()
	sameSong := s.current != nil && s.current.ID == song.ID
	s.mu.RUnlock()

	if sameSong && !forceRestart {
		return s.engine.Play()
	}

	if err := s.engine.SetQueue([]Item{s.itemFor(song)}, 0); err != nil {
		return err
	}
	return s.engine.Play()
}

func (s *serviceImpl) PlaySongs(songs []catalog.Song, shuffled bool) error {
	if len(songs) == 0 {
		return nil
	}

	queue := append([]catalog.Song(nil), songs...)
	if shuffled {
		rand.Shuffle(len(queue), func(i, j int) {
			queue[i], queue[j] = queue[j], queue[i]
		})
	}

	items := make([]Item, len(queue))
	for i := range queue {
		items[i] = s.itemFor(&queue[i])
	}
	if err := s.engine.SetQueue(items, 0); err != nil {
		return err
	}
	return s.engine.Play()
}

func (s *serviceImpl) PlayNext(song *catalog.Song) error {
	at := s.engine.CurrentIndex() + 1
	if at < 1 {
		at = 0
	}
	return s.engine.AddItemAt(at, s.itemFor(song))
}

func (s *serviceImpl) PlayPause() error {
	s.mu.RLock()
	playing := s.playing
	s.mu.RUnlock()
	if playing {
		return s.engine.Pause()
	}
	return s.engine.Play()
}

func (s *serviceImpl) SeekTo(positionMs int64) error {
	if err := s.engine.SeekTo(positionMs); err != nil {
		return err
	}
	s.publish()
	return nil
}

func (s *serviceImpl) SkipNext() error {
	return s.engine.Next()
}

func (s *serviceImpl) SkipPrevious() error {
	return s.engine.Previous()
}

func (s *serviceImpl) SetShuffle(enabled bool) error {
	if err := s.engine.SetShuffle(enabled); err != nil {
		return err
	}
	if err := s.store.SetShuffleEnabled(enabled); err != nil {
		return err
	}
	s.mu.Lock()
	s.shuffle = enabled
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *serviceImpl) SetRepeat(mode catalog.RepeatMode) error {
	if err := s.engine.SetRepeat(mode); err != nil {
		return err
	}
	if err := s.store.SetRepeatMode(mode); err != nil {
		return err
	}
	s.mu.Lock()
	s.repeat = mode
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *serviceImpl) CycleRepeat() (catalog.RepeatMode, error) {
	s.mu.RLock()
	next := s.repeat.Cycle()
	s.mu.RUnlock()
	if err := s.SetRepeat(next); err != nil {
		return s.repeat, err
	}
	return next, nil
}

func (s *serviceImpl) Subscribe() *Subscription {
	sub := newSubscription()
	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	// New subscribers get the current snapshot right away.
	sub.send(s.State())
	return sub
}

func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return s.engine.Close()
}
