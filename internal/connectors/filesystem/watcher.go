package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recall/internal/logger"
)

// EventKind classifies a file change.
type EventKind int

const (
	// FileCreated is a new file.
	FileCreated EventKind = iota
	// FileUpdated is a write to an existing file.
	FileUpdated
	// FileRemoved is a deletion or a rename away.
	FileRemoved
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case FileCreated:
		return "created"
	case FileUpdated:
		return "updated"
	case FileRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a change to a file in a watched folder.
type Event struct {
	Path string
	Kind EventKind
}

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports changes to files directly inside a folder.
type Watcher struct {
	rootPath string

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for rootPath. Nothing is watched until
// Watch is called.
func NewWatcher(rootPath string) *Watcher {
	return &Watcher{rootPath: rootPath}
}

// RootPath returns the watched folder.
func (w *Watcher) RootPath() string {
	return w.rootPath
}

// Watch starts watching. The returned channel is closed when ctx is
// cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	info, err := os.Stat(w.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.rootPath)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}
	if w.watcher != nil {
		return nil, fmt.Errorf("already watching %s", w.rootPath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.rootPath); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.rootPath, err)
	}
	w.watcher = fsw

	events := make(chan Event, 16)
	go w.loop(ctx, fsw, events)
	return events, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)
	defer w.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change, ok := handleFsEvent(event)
			if !ok {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher %s: %v", w.rootPath, err)
		}
	}
}

// handleFsEvent maps an fsnotify event onto an Event. Directories,
// hidden files and attribute changes are dropped.
func handleFsEvent(event fsnotify.Event) (Event, bool) {
	if isHidden(event.Name) {
		return Event{}, false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return Event{}, false
		}
		return Event{Path: event.Name, Kind: FileCreated}, true

	case event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return Event{}, false
		}
		return Event{Path: event.Name, Kind: FileUpdated}, true

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Event{Path: event.Name, Kind: FileRemoved}, true

	default:
		return Event{}, false
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
