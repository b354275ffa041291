package catalog

import "sync"

// Topic identifies a group of rows a subscriber can watch.
type Topic string

const (
	TopicSongs     Topic = "songs"
	TopicArtists   Topic = "artists"
	TopicAlbums    Topic = "albums"
	TopicPlaylists Topic = "playlists"
	TopicHistory   Topic = "history"
	TopicSettings  Topic = "settings"
)

const notifyBufferSize = 16

// Subscription delivers change notifications for the topics it was created
// with. Reads come from C; Done closes when the notifier shuts down.
type Subscription struct {
	C    <-chan Topic
	Done <-chan struct{}

	c      chan Topic
	done   chan struct{}
	topics map[Topic]struct{} // empty means all topics
}

func newSubscription(topics []Topic) *Subscription {
	s := &Subscription{
		c:      make(chan Topic, notifyBufferSize),
		done:   make(chan struct{}),
		topics: make(map[Topic]struct{}, len(topics)),
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}
	s.C = s.c
	s.Done = s.done
	return s
}

func (s *Subscription) wants(topic Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// send is non-blocking; a slow subscriber drops notifications rather than
// stalling a write path. A dropped notification is safe because subscribers
// re-run their query on the next one.
func (s *Subscription) send(topic Topic) {
	select {
	case s.c <- topic:
	default:
	}
}

// Notifier fans out catalog change notifications to subscribers.
// It decouples reactive reads from the storage engine: the store publishes
// a topic after each committed mutation and subscribers re-query.
type Notifier struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a subscriber for the given topics.
// No topics means every topic.
func (n *Notifier) Subscribe(topics ...Topic) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := newSubscription(topics)
	if n.closed {
		close(sub.done)
		return sub
	}
	n.subs = append(n.subs, sub)
	return sub
}

// Unsubscribe removes a subscriber and closes its Done channel.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			close(s.done)
			return
		}
	}
}

// Publish notifies every subscriber interested in topic.
func (n *Notifier) Publish(topic Topic) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if sub.wants(topic) {
			sub.send(topic)
		}
	}
}

// Close shuts down all subscriptions.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for _, sub := range n.subs {
		close(sub.done)
	}
	n.subs = nil
}
