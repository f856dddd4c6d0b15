package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to the store file. Editors often replace a file by
// renaming a new one over it, so the directory is watched and events are
// filtered by name. Bursts collapse into a single pending notification.
type Watcher struct {
	watcher *fsnotify.Watcher
	name    string
	changes chan struct{}
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
}

// Watch starts watching path.
func Watch(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher: fsw,
		name:    filepath.Base(path),
		changes: make(chan struct{}, 1),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// Changes delivers one value per burst of writes to the file.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors delivers watcher failures.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops watching and waits for the event goroutine to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}
