// One-shot library scan with a summary report. Useful for checking what a
// full sync would do to the catalog without running the daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/mediaindex"
	"cadenza/internal/sync"
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
		return err
	}
	if len(cfg.LibrarySources) == 0 {
		return fmt.Errorf("no library_sources configured")
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	// Scan into a scratch catalog so the report never touches live data.
	dir, err := os.MkdirTemp("", "scanreport-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	store, err := catalog.OpenMemory(log)
	if err != nil {
		return err
	}
	defer store.Close()

	index := mediaindex.NewFSIndex(cfg.LibrarySources, cfg.GetMinDuration(), log)
	reader := mediaindex.NewReader(index, filepath.Join(dir, "artwork"), log)
	reconciler := sync.NewReconciler(store, reader, log)

	progress := reconciler.Subscribe()
	done := make(chan *sync.Stats, 1)
	go func() {
		for p := range progress {
			switch p.Phase {
			case sync.PhaseReconciling:
				if p.Current%100 == 0 || p.Current == p.Total {
					fmt.Printf("\rreconciling %d/%d", p.Current, p.Total)
				}
			case sync.PhaseDone:
				fmt.Println()
				done <- p.Stats
				return
			case sync.PhaseFailed:
				fmt.Println()
				done <- nil
				return
			}
		}
	}()

	if err := reconciler.Sync(context.Background()); err != nil {
		return err
	}
	stats := <-done

	songs, artists, albums, err := store.Counts()
	if err != nil {
		return err
	}

	fmt.Printf("Sources:\n")
	for _, src := range cfg.LibrarySources {
		fmt.Printf("  %s\n", src)
	}
	fmt.Printf("\nCatalog: %d songs, %d artists, %d albums\n", songs, artists, albums)
	if stats != nil {
		fmt.Printf("Scan: %d added, %d updated, %d removed, %d failed\n",
			stats.Added, stats.Updated, stats.Removed, stats.Failed)
	}
	return nil
}
