// Package watch provides debounced file watching for schema changes.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long the watcher waits after the last write before
// firing the callback. Editors often produce bursts of events per save.
const Debounce = 500 * time.Millisecond

// Watcher invokes a callback when a single file changes.
type Watcher struct {
	file     string
	callback func() error
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher watches file and calls callback after each debounced change.
// The directory is watched rather than the file itself so that editors
// which replace the file on save (write to temp, then rename) still
// trigger events.
func NewWatcher(file string, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Callback errors are
// reported to stderr and watching continues.
func (w *Watcher) Start() {
	go func() {
		debounceTimer := time.NewTimer(Debounce)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				eventPath, err := filepath.Abs(event.Name)
				if err == nil && eventPath == w.file {
					debounceTimer.Reset(Debounce)
					debounceCh = debounceTimer.C
				}

			case <-debounceCh:
				if err := w.callback(); err != nil {
					fmt.Fprintf(os.Stderr, "Watch callback error: %v\n", err)
				}
				debounceCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops watching the file.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
