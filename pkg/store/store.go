// Package store persists the local task list and the last-synced watermark.
//
// Both files are rewritten whole through a temp file and a rename, so a reader
// never sees a partial write. The task list is only written when its
// canonical encoding differs from the last snapshot loaded or saved.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/harrisonrobin/tasksync/pkg/model"
)

const lockRetryDelay = 100 * time.Millisecond

// Store is the local task list. It has a single writer: one pass at a time
// inside the process, and the file lock across processes.
type Store struct {
	Path     string
	lock     *flock.Flock
	snapshot []byte
}

// New returns a store backed by path. Nothing is read until Load.
func New(path string) *Store {
	return &Store{
		Path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Lock takes the cross-process lock on the store, waiting until ctx is done.
func (s *Store) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.Path, err)
	}
	if !ok {
		return fmt.Errorf("failed to lock %s: held by another process", s.Path)
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Load reads every record. A missing file is an empty store. The canonical
// encoding of what was read becomes the snapshot Save compares against.
func (s *Store) Load() ([]model.Task, error) {
	tasks, err := s.read()
	if err != nil {
		return nil, err
	}
	snapshot, err := Encode(tasks)
	if err != nil {
		return nil, err
	}
	s.snapshot = snapshot
	return tasks, nil
}

func (s *Store) read() ([]model.Task, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Task{}, nil
		}
		return nil, err
	}
	return Decode(data)
}

// Save writes tasks if their encoding differs from the snapshot and reports
// whether it wrote.
func (s *Store) Save(tasks []model.Task) (bool, error) {
	data, err := Encode(tasks)
	if err != nil {
		return false, err
	}
	if s.snapshot != nil && bytes.Equal(data, s.snapshot) {
		return false, nil
	}
	if err := writeFile(s.Path, data); err != nil {
		return false, err
	}
	s.snapshot = data
	return true, nil
}

// Previous decodes the last snapshot. ok is false when nothing has been
// loaded or saved yet.
func (s *Store) Previous() (tasks []model.Task, ok bool, err error) {
	if s.snapshot == nil {
		return nil, false, nil
	}
	tasks, err = Decode(s.snapshot)
	return tasks, err == nil, err
}

// Changed reports whether the file on disk no longer matches the snapshot,
// which means someone else edited it.
func (s *Store) Changed() (bool, error) {
	if s.snapshot == nil {
		return false, nil
	}
	tasks, err := s.read()
	if err != nil {
		return false, err
	}
	data, err := Encode(tasks)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(data, s.snapshot), nil
}

// Encode is the canonical, human-readable encoding of the task list.
func Encode(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	for i := range tasks {
		if tasks[i].Labels == nil {
			tasks[i].Labels = []string{}
		}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(tasks); err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a task list.
func Decode(data []byte) ([]model.Task, error) {
	var tasks []model.Task
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Task{}, nil
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
