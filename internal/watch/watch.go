package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"cadenza/internal/mediaindex"
)

// Watcher monitors the library sources for audio file changes and invokes
// onChange after a quiet period. Bursts of events (copies, moves, tag
// writers) collapse into one callback.
type Watcher struct {
	sources  []string
	debounce time.Duration
	onChange func()
	log      *logrus.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func New(sources []string, debounce time.Duration, onChange func(), log *logrus.Logger) *Watcher {
	return &Watcher{
		sources:  sources,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins watching all sources recursively.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	go w.loop()

	for _, src := range w.sources {
		if err := w.addRecursive(src); err != nil {
			w.log.WithFields(logrus.Fields{
				"source": src,
				"error":  err,
			}).Warn("failed to watch source")
		}
	}
	w.log.WithField("sources", w.sources).Info("library watcher started")
	return nil
}

// Close stops the watcher and cancels any pending callback.
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("library watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}

	// New directories join the watch so nested additions keep arriving.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.log.WithError(err).Warn("failed to watch new directory")
			}
			w.schedule()
			return
		}
	}

	if !mediaindex.IsAudioFile(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.log.WithFields(logrus.Fields{
			"path": event.Name,
			"op":   event.Op.String(),
		}).Debug("library change detected")
		w.schedule()
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
