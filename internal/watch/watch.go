// Package watch reports edits to a pairs file so clustering can be rerun.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// Change is a debounced edit to the watched file.
type Change struct {
	File    string
	Removed bool
}

// Watcher monitors a single file using fsnotify. The file's directory is
// watched rather than the file itself so editors that save by rename are
// still observed.
type Watcher struct {
	File     string
	Debounce time.Duration
	Changes  <-chan Change // Read-only external channel

	changes chan Change
	stop    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for file. Call Start to begin receiving changes.
func New(file string) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", file, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	ch := make(chan Change, 16)
	return &Watcher{
		File:     abs,
		Debounce: DefaultDebounce,
		Changes:  ch,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.File, err)
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Changes not yet received
// are dropped.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var (
		pending  bool
		removed  bool
		lastSeen time.Time
	)
	ticker := time.NewTicker(w.Debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.send(Change{File: w.File, Removed: removed})
				}
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				pending, removed, lastSeen = true, true, time.Now()
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				pending, removed, lastSeen = true, false, time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(lastSeen) >= w.Debounce {
				if !w.send(Change{File: w.File, Removed: removed}) {
					return
				}
				pending = false
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// send delivers c unless Stop has been called.
func (w *Watcher) send(c Change) bool {
	select {
	case w.changes <- c:
		return true
	case <-w.stop:
		return false
	}
}
