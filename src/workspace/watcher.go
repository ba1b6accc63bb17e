package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"couleuvre/src/internal/common"
)

// FileChangeEvent represents a source file change on disk.
type FileChangeEvent struct {
	Path      string
	Operation string // "write", "create", "remove", "rename"
	Timestamp time.Time
}

// Watcher watches the workspace for on-disk source changes so the server
// can drop stale cached modules edited outside the editor.
type Watcher struct {
	watcher       *fsnotify.Watcher
	extensions    []string
	onChange      func([]FileChangeEvent)
	debounceDelay time.Duration

	pendingEvents map[string]*FileChangeEvent
	eventMutex    sync.Mutex
	debounceTimer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for files with the given extensions.
func NewWatcher(extensions []string, onChange func([]FileChangeEvent)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		watcher:       watcher,
		extensions:    extensions,
		onChange:      onChange,
		debounceDelay: 500 * time.Millisecond,
		pendingEvents: make(map[string]*FileChangeEvent),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	return w, nil
}

// AddPath adds a directory (recursively) or file to the watch set.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := w.watcher.Add(absPath); err != nil {
		return err
	}
	common.ServerLogger.Debug("watcher: added path %s", absPath)

	if err := w.addSubdirectories(absPath); err != nil {
		common.ServerLogger.Warn("failed to add subdirectories for %s: %v", absPath, err)
	}
	return nil
}

// addSubdirectories recursively watches subdirectories, skipping hidden
// and dependency directories.
func (w *Watcher) addSubdirectories(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		base := filepath.Base(path)
		if base == "node_modules" || base == "venv" || strings.HasPrefix(base, ".") {
			if info.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() && path != root {
			if err := w.watcher.Add(path); err != nil {
				common.ServerLogger.Warn("failed to watch directory %s: %v", path, err)
			}
		}
		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.shouldProcess(event.Name) {
				continue
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			common.ServerLogger.Error("watcher error: %v", err)
		}
	}
}

// shouldProcess filters events to watched extensions; new directories are
// added to the watch set instead.
func (w *Watcher) shouldProcess(path string) bool {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if err := w.addSubdirectories(path); err != nil {
			common.ServerLogger.Warn("failed to add new directory %s: %v", path, err)
		}
		return false
	}

	ext := filepath.Ext(path)
	for _, validExt := range w.extensions {
		if ext == validExt {
			return true
		}
	}
	return false
}

// handleEvent records a file system event, coalescing bursts through the
// debounce timer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.eventMutex.Lock()
	defer w.eventMutex.Unlock()

	var operation string
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = "write"
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = "create"
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = "remove"
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		operation = "rename"
	default:
		return
	}

	w.pendingEvents[event.Name] = &FileChangeEvent{
		Path:      event.Name,
		Operation: operation,
		Timestamp: time.Now(),
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flushEvents)
}

// flushEvents delivers all pending events to the callback.
func (w *Watcher) flushEvents() {
	w.eventMutex.Lock()
	defer w.eventMutex.Unlock()

	if len(w.pendingEvents) == 0 {
		return
	}

	events := make([]FileChangeEvent, 0, len(w.pendingEvents))
	for _, event := range w.pendingEvents {
		events = append(events, *event)
	}
	w.pendingEvents = make(map[string]*FileChangeEvent)

	if w.onChange != nil {
		common.ServerLogger.Debug("watcher: flushing %d file change events", len(events))
		go w.onChange(events)
	}
}

// Stop stops the watcher, flushing any pending events first.
func (w *Watcher) Stop() error {
	w.cancel()
	w.flushEvents()
	err := w.watcher.Close()
	<-w.done
	return err
}

// SetDebounceDelay overrides the event coalescing window.
func (w *Watcher) SetDebounceDelay(delay time.Duration) {
	w.debounceDelay = delay
}
