package playback

const eventBufferSize = 16

// Subscription carries state snapshots for one subscriber. Done closes when
// the subscription ends.
type Subscription struct {
	C    <-chan State
	Done <-chan struct{}

	stateCh chan State
	doneCh  chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh: make(chan State, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.C = s.stateCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

// send delivers a snapshot without blocking; a full buffer drops it.
func (s *Subscription) send(state State) {
	select {
	case s.stateCh <- state:
	default:
	}
}
