package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func waitForCalls(t *testing.T, calls *atomic.Int32, want int32, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s (calls = %d, want >= %d)", msg, calls.Load(), want)
}

func TestWatcher_AudioChangeTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w := New([]string{dir}, 50*time.Millisecond, func() { calls.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "new.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForCalls(t, &calls, 1, "callback never fired for audio file")
}

func TestWatcher_IgnoresNonAudioAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w := New([]string{dir}, 20*time.Millisecond, func() { calls.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	for _, name := range []string{"notes.txt", ".hidden.mp3", "upload.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times for ignored files", got)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w := New([]string{dir}, 150*time.Millisecond, func() { calls.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	// A burst of writes inside the debounce window collapses to one call.
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "burst.mp3")
		if err := os.WriteFile(path, make([]byte, i+1), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitForCalls(t, &calls, 1, "debounced callback never fired")
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want exactly 1 for a single burst", got)
	}
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w := New([]string{dir}, 50*time.Millisecond, func() { calls.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	sub := filepath.Join(dir, "album")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitForCalls(t, &calls, 1, "directory creation did not schedule a rescan")

	// Give fsnotify a beat to register the new directory, then drop a file in.
	time.Sleep(100 * time.Millisecond)
	before := calls.Load()
	if err := os.WriteFile(filepath.Join(sub, "track.flac"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForCalls(t, &calls, before+1, "file in new directory not noticed")
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w := New([]string{t.TempDir()}, time.Second, func() {}, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
