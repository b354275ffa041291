package catalog

import (
	"context"
)

// Watch runs query now and again after every change on topic, delivering the
// result wrapped in a Resource. The returned channel starts with Loading,
// then carries Success, Empty or Error states, and closes when ctx is done
// or the store shuts down.
//
// The subscription mechanism is the store's own notifier, so callers stay
// decoupled from how the storage engine signals change.
func Watch[T any](ctx context.Context, s *Store, topic Topic, query func() ([]T, error)) <-chan Resource[[]T] {
	out := make(chan Resource[[]T], 1)
	sub := s.notifier.Subscribe(topic)

	run := func() Resource[[]T] {
		data, err := query()
		switch {
		case err != nil:
			return Failure[[]T](err.Error())
		case len(data) == 0:
			return Empty[[]T]()
		default:
			return Success(data)
		}
	}

	go func() {
		defer close(out)
		defer s.notifier.Unsubscribe(sub)

		out <- Loading[[]T]()

		deliver := func(r Resource[[]T]) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			case <-sub.Done:
				return false
			}
		}

		if !deliver(run()) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done:
				return
			case <-sub.C:
				if !deliver(run()) {
					return
				}
			}
		}
	}()

	return out
}

// WatchSongs is a reactive read over the full song list.
func WatchSongs(ctx context.Context, s *Store) <-chan Resource[[]Song] {
	return Watch(ctx, s, TopicSongs, s.Songs)
}

// WatchAlbums is a reactive read over the full album list.
func WatchAlbums(ctx context.Context, s *Store) <-chan Resource[[]Album] {
	return Watch(ctx, s, TopicAlbums, s.Albums)
}

// WatchArtists is a reactive read over the full artist list.
func WatchArtists(ctx context.Context, s *Store) <-chan Resource[[]Artist] {
	return Watch(ctx, s, TopicArtists, s.Artists)
}

// WatchFavorites is a reactive read over the favorited songs.
func WatchFavorites(ctx context.Context, s *Store) <-chan Resource[[]Song] {
	return Watch(ctx, s, TopicSongs, s.FavoriteSongs)
}
