package fxlots

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
)

/*
File layout

<dir>/usdLots.json
<dir>/usdSales.json
<dir>/jpyLots.json
<dir>/jpySales.json
<dir>/theme.json

Notes:
- one file per key, holding the raw blob
- every write goes to a temp file in the same directory and is renamed over the target
- Put of several keys stages all temp files first, then renames them; when a
  rename fails the keys already renamed get their previous content back
- a crash between renames can still leave one key newer than another
*/

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type fileStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) (*fileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir}, nil
}

var _ BlobStore = (*fileStore)(nil)

func (s *fileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: storage key %q", ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *fileStore) Put(_ context.Context, blobs map[string][]byte) error {
	keys := slices.Sorted(maps.Keys(blobs))
	paths := make(map[string]string, len(blobs))
	for _, k := range keys {
		p, err := s.path(k)
		if err != nil {
			return err
		}
		paths[k] = p
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]string, len(keys))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, k := range keys {
		tmp, err := stageFile(s.dir, blobs[k])
		if err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
		staged[k] = tmp
	}

	// prev holds the content of renamed keys that existed before this Put.
	var done []string
	prev := make(map[string][]byte, len(keys))
	for _, k := range keys {
		old, err := os.ReadFile(paths[k])
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			restore(done, paths, prev)
			return fmt.Errorf("write %s: %w", k, err)
		}
		if err := os.Rename(staged[k], paths[k]); err != nil {
			restore(done, paths, prev)
			return fmt.Errorf("write %s: %w", k, err)
		}
		delete(staged, k)
		if err == nil {
			prev[k] = old
		}
		done = append(done, k)
	}
	return nil
}

// restore puts back the content keys had before a failed Put.
func restore(keys []string, paths map[string]string, prev map[string][]byte) {
	for _, k := range keys {
		old, ok := prev[k]
		if !ok {
			os.Remove(paths[k])
			continue
		}
		_ = atomicWriteFile(paths[k], old)
	}
}

func (s *fileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		p, err := s.path(k)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// stageFile writes data to a synced temp file in dir and returns its path.
func stageFile(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

func atomicWriteFile(path string, data []byte) error {
	tmpPath, err := stageFile(filepath.Dir(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
