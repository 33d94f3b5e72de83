package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStore keeps one JSON file per key under a base directory. Writes go
// through a temp file and an atomic rename so a crashed write never leaves a
// half-serialized value behind.
type FileStore struct {
	dir     string
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(_ context.Context, key string, value any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("reading key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("decoding key %s: %w", key, err)
	}

	return true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding key %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for key %s: %w", key, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("writing key %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("closing temp file for key %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("replacing key %s: %w", key, err)
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}

	return nil
}

// Watch reports modifications of stored keys, the analog of the browser's
// cross-tab storage event. This process's own writes are reported too;
// callers must tolerate wakeups for changes they made themselves. onChange
// receives the affected key and runs on the watcher goroutine; it should do
// nothing heavier than poking a resync. Watch may be called at most once per
// store.
func (s *FileStore) Watch(onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()

		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, ".json") {
					continue
				}

				onChange(strings.TrimSuffix(name, ".json"))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				slog.Warn("file store watcher error", slog.String("error", err.Error()))
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

func (s *FileStore) Close() error {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}

	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil

		return err
	}

	return nil
}
