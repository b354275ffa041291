package playback

import (
	"errors"
	"sync"

	"cadenza/internal/catalog"
)

// Verify MockEngine implements Engine at compile time.
var _ Engine = (*MockEngine)(nil)

// MockEngine is an in-memory Engine for tests and headless runs. It keeps the
// queue and transport state but produces no audio; position only moves via
// SeekTo.
type MockEngine struct {
	mu sync.Mutex

	queue    []Item
	index    int
	playing  bool
	position int64
	shuffle  bool
	repeat   catalog.RepeatMode

	events chan Event
	closed bool
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		index:  -1,
		events: make(chan Event, eventBufferSize),
	}
}

func (m *MockEngine) SetQueue(items []Item, startIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if startIndex < 0 || (len(items) > 0 && startIndex >= len(items)) {
		return errors.New("start index out of range")
	}
	m.queue = append([]Item(nil), items...)
	m.position = 0
	if len(m.queue) == 0 {
		m.index = -1
		return nil
	}
	m.index = startIndex
	m.emitItemLocked()
	return nil
}

func (m *MockEngine) AddItemAt(index int, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index > len(m.queue) {
		return errors.New("index out of range")
	}
	m.queue = append(m.queue, Item{})
	copy(m.queue[index+1:], m.queue[index:])
	m.queue[index] = item
	if m.index >= index {
		m.index++
	}
	if m.index < 0 {
		m.index = index
		m.emitItemLocked()
	}
	return nil
}

func (m *MockEngine) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 {
		return errors.New("nothing to play")
	}
	if !m.playing {
		m.playing = true
		m.emit(Event{Kind: EventPlayingChanged, Playing: true, Index: m.index})
	}
	return nil
}

func (m *MockEngine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.playing = false
		m.emit(Event{Kind: EventPlayingChanged, Playing: false, Index: m.index})
	}
	return nil
}

func (m *MockEngine) SeekTo(positionMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if positionMs < 0 {
		positionMs = 0
	}
	m.position = positionMs
	return nil
}

func (m *MockEngine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(1)
}

func (m *MockEngine) Previous() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(-1)
}

func (m *MockEngine) moveLocked(delta int) error {
	if len(m.queue) == 0 {
		return errors.New("queue is empty")
	}
	next := m.index + delta
	switch {
	case next >= len(m.queue):
		if m.repeat != catalog.RepeatAll {
			return nil // stay on the last item
		}
		next = 0
	case next < 0:
		next = 0
	}
	if next == m.index {
		return nil
	}
	m.index = next
	m.position = 0
	m.emitItemLocked()
	return nil
}

func (m *MockEngine) SetShuffle(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffle = enabled
	return nil
}

func (m *MockEngine) SetRepeat(mode catalog.RepeatMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = mode
	return nil
}

func (m *MockEngine) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *MockEngine) PositionMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockEngine) DurationMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 0
}

func (m *MockEngine) Events() <-chan Event {
	return m.events
}

func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// Queue returns a copy of the queue for assertions.
func (m *MockEngine) Queue() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.queue...)
}

func (m *MockEngine) emitItemLocked() {
	item := m.queue[m.index]
	m.emit(Event{Kind: EventItemChanged, Playing: m.playing, Index: m.index, Item: &item})
}

func (m *MockEngine) emit(e Event) {
	if m.closed {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}
