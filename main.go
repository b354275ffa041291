package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/history"
	"cadenza/internal/mediaindex"
	"cadenza/internal/playback"
	"cadenza/internal/sync"
	"cadenza/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.GetLogLevel())
	if len(cfg.LibrarySources) == 0 {
		log.Warn("no library_sources configured, the catalog will stay empty")
	}

	store, err := catalog.Open(log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	index := mediaindex.NewFSIndex(cfg.LibrarySources, cfg.GetMinDuration(), log)
	reader := mediaindex.NewReader(index, cfg.GetArtworkDir(), log)
	reconciler := sync.NewReconciler(store, reader, log)

	histCfg := cfg.GetHistoryConfig()
	histSvc := history.NewService(store, log,
		time.Duration(histCfg.DedupMinutes)*time.Minute, histCfg.Limit)

	player, err := playback.New(playback.NewMockEngine(), store, log)
	if err != nil {
		return fmt.Errorf("init playback: %w", err)
	}
	defer player.Close()

	// Wire listens into history as the current song changes.
	go recordListens(player, histSvc, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go logProgress(reconciler, log)
	reconciler.Start(ctx)

	watchCfg := cfg.GetWatchConfig()
	if *watchCfg.Enabled && len(cfg.LibrarySources) > 0 {
		watcher := watch.New(cfg.LibrarySources,
			time.Duration(watchCfg.DebounceMs)*time.Millisecond,
			func() { reconciler.Start(ctx) }, log)
		if err := watcher.Start(); err != nil {
			log.WithError(err).Warn("library watcher unavailable")
		} else {
			defer watcher.Close()
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.WithField("signal", s.String()).Info("shutting down")
	return nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// recordListens writes a history entry whenever playback moves to a song.
func recordListens(player playback.Service, hist *history.Service, log *logrus.Logger) {
	sub := player.Subscribe()
	defer player.Unsubscribe(sub)

	var lastSongID int64
	for {
		select {
		case <-sub.Done:
			return
		case state := <-sub.C:
			if state.Song == nil || !state.Playing || state.Song.ID == lastSongID {
				continue
			}
			lastSongID = state.Song.ID
			if err := hist.RecordListen(state.Song.ID); err != nil {
				log.WithError(err).Warn("failed to record listen")
			}
		}
	}
}

func logProgress(reconciler *sync.Reconciler, log *logrus.Logger) {
	sub := reconciler.Subscribe()
	defer reconciler.Unsubscribe(sub)

	for p := range sub {
		switch p.Phase {
		case sync.PhaseDone:
			log.WithFields(logrus.Fields{
				"added":   p.Stats.Added,
				"updated": p.Stats.Updated,
				"removed": p.Stats.Removed,
				"failed":  p.Stats.Failed,
			}).Info("library scan finished")
		case sync.PhaseFailed:
			log.WithError(p.Err).Error("library scan failed")
		}
	}
}
