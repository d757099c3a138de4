package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.CorpusWatcher = (*Watcher)(nil)

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports changes to files selected by a Source.
type Watcher struct {
	source *Source
	now    func() time.Time

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	closed  bool
	closeCh chan struct{}
}

// NewWatcher creates a watcher over the source's root and glob.
func NewWatcher(source *Source) *Watcher {
	return &Watcher{
		source:  source,
		now:     time.Now,
		closeCh: make(chan struct{}),
	}
}

// Watch starts watching the corpus recursively. The returned channel is
// closed when ctx is cancelled or the watcher is closed. Only one Watch
// may be active at a time.
func (w *Watcher) Watch(ctx context.Context) (<-chan domain.CorpusChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}
	if w.fsw != nil {
		return nil, errors.New("watcher already running")
	}

	info, err := os.Stat(w.source.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("documents directory %s: %w", w.source.root, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.source.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(fsw, w.source.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	changes := make(chan domain.CorpusChange, 16)
	go w.run(ctx, fsw, changes)

	return changes, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- domain.CorpusChange) {
	defer close(changes)
	defer func() {
		w.mu.Lock()
		if w.fsw == fsw {
			_ = fsw.Close()
			w.fsw = nil
		}
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeCh:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(filepath.Base(event.Name)) {
				if err := addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
			}
			change := w.handleEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			case <-w.closeCh:
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// handleEvent maps a filesystem event to a corpus change. Directories,
// hidden files, chmod-only events and files outside the glob yield nil.
func (w *Watcher) handleEvent(event fsnotify.Event) *domain.CorpusChange {
	rel, err := filepath.Rel(w.source.root, event.Name)
	if err != nil || isHidden(rel) {
		return nil
	}
	if !w.source.Matches(event.Name) {
		return nil
	}

	var changeType domain.ChangeType
	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return nil
		}
		changeType = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return nil
		}
		changeType = domain.ChangeUpdated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		changeType = domain.ChangeDeleted
	default:
		return nil
	}

	return &domain.CorpusChange{
		Type: changeType,
		Path: event.Name,
		At:   w.now().UTC(),
	}
}

// Close stops any active watch. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.closeCh)

	if w.fsw != nil {
		err := w.fsw.Close()
		w.fsw = nil
		return err
	}
	return nil
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
