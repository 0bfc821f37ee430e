package filewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

const debounceDelay = 100 * time.Millisecond

// FsWatcher monitors the user store file so externally-made changes
// (another process, a manual edit) invalidate the in-memory copy.
// fsnotify watches the parent directory; events are filtered down to the
// registered paths and debounced, since an atomic temp-write-then-rename
// produces several raw events for one logical change.
type FsWatcher struct {
	watcher      *fsnotify.Watcher
	events       chan outbound.FileChangeEvent
	errors       chan error
	debouncer    map[string]*time.Timer
	watchedPaths map[string]bool
	watchedDirs  map[string]bool
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	running      bool
}

func NewFSWatcher() (outbound.FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsWatcher{
		watcher:      fsWatcher,
		events:       make(chan outbound.FileChangeEvent, 100),
		errors:       make(chan error, 10),
		debouncer:    make(map[string]*time.Timer),
		watchedPaths: make(map[string]bool),
		watchedDirs:  make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FsWatcher) Watch(ctx context.Context, path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	fw.watchedPaths[absPath] = true
	fw.running = true

	// watch the directory; file-level watches break across renames
	dir := filepath.Dir(absPath)
	if fw.watchedDirs[dir] {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	fw.watchedDirs[dir] = true

	return nil
}

func (fw *FsWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.cancel()

	for path, timer := range fw.debouncer {
		timer.Stop()
		delete(fw.debouncer, path)
	}

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	fw.running = false
	return nil
}

func (fw *FsWatcher) Events() <-chan outbound.FileChangeEvent {
	return fw.events
}

func (fw *FsWatcher) Errors() <-chan error {
	return fw.errors
}

func (fw *FsWatcher) IsWatching() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FsWatcher) processEvents() {
	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fw.debounceEvent(event)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.ctx.Done():
				return
			}
		}
	}
}

func (fw *FsWatcher) debounceEvent(event fsnotify.Event) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	absPath, err := filepath.Abs(event.Name)
	if err != nil || !fw.watchedPaths[absPath] {
		return
	}

	if timer, exists := fw.debouncer[absPath]; exists {
		timer.Stop()
	}

	eventType := "modify"
	if event.Has(fsnotify.Create) {
		eventType = "create"
	}

	fw.debouncer[absPath] = time.AfterFunc(debounceDelay, func() {
		select {
		case fw.events <- outbound.FileChangeEvent{FilePath: absPath, EventType: eventType}:
		case <-fw.ctx.Done():
		}
	})
}
