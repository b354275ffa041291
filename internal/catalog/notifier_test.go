package catalog

import (
	"context"
	"testing"
	"time"
)

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	sub := n.Subscribe(TopicSongs)
	n.Publish(TopicSongs)

	select {
	case topic := <-sub.C:
		if topic != TopicSongs {
			t.Errorf("topic = %q, want songs", topic)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}
}

func TestNotifier_TopicFilter(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	sub := n.Subscribe(TopicPlaylists)
	n.Publish(TopicSongs)

	select {
	case topic := <-sub.C:
		t.Errorf("unexpected notification for %q", topic)
	default:
	}
}

func TestNotifier_EmptyTopicsMeansAll(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	sub := n.Subscribe()
	n.Publish(TopicAlbums)
	n.Publish(TopicHistory)

	for i := 0; i < 2; i++ {
		select {
		case <-sub.C:
		case <-time.After(time.Second):
			t.Fatal("missing notification")
		}
	}
}

func TestNotifier_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	sub := n.Subscribe(TopicSongs)
	// Publish far past the buffer; must not block.
	for i := 0; i < notifyBufferSize*3; i++ {
		n.Publish(TopicSongs)
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
		default:
			if received != notifyBufferSize {
				t.Errorf("received = %d, want %d buffered", received, notifyBufferSize)
			}
			return
		}
	}
}

func TestNotifier_UnsubscribeClosesDone(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	sub := n.Subscribe(TopicSongs)
	n.Unsubscribe(sub)

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Unsubscribe")
	}
}

func TestWatch_DeliversLoadingThenData(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	insertTestSong(t, store, 1, "Song")

	ch := WatchSongs(ctx, store)

	first := <-ch
	if first.State != ResourceLoading {
		t.Errorf("first state = %v, want Loading", first.State)
	}

	second := <-ch
	if second.State != ResourceSuccess {
		t.Fatalf("second state = %v, want Success", second.State)
	}
	if len(second.Data) != 1 {
		t.Errorf("data len = %d, want 1", len(second.Data))
	}
}

func TestWatch_EmptyResult(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := WatchSongs(ctx, store)

	<-ch // Loading
	r := <-ch
	if r.State != ResourceEmpty {
		t.Errorf("state = %v, want Empty", r.State)
	}
}

func TestWatch_ReactsToMutation(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := WatchSongs(ctx, store)
	<-ch // Loading
	<-ch // Empty

	insertTestSong(t, store, 9, "Late Arrival")

	select {
	case r := <-ch:
		if r.State != ResourceSuccess {
			t.Fatalf("state = %v, want Success", r.State)
		}
		if len(r.Data) != 1 || r.Data[0].Title != "Late Arrival" {
			t.Errorf("data = %+v", r.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update after mutation")
	}
}

func TestResourceState_String(t *testing.T) {
	states := map[ResourceState]string{
		ResourceIdle:    "Idle",
		ResourceLoading: "Loading",
		ResourceEmpty:   "Empty",
		ResourceSuccess: "Success",
		ResourceError:   "Error",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
