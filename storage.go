package main

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// DiskStorage keeps raw image bytes in a flat directory, one file per
// storage key. Keys are server-generated, never derived from client input.
type DiskStorage struct {
	dir string
}

func NewDiskStorage(dir string) (*DiskStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return nil, err
	}

	return &DiskStorage{dir: abs}, nil
}

func (s *DiskStorage) Dir() string {
	return s.dir
}

func (s *DiskStorage) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *DiskStorage) Save(key string, r io.Reader) error {
	f, err := os.Create(s.path(key))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}

	return f.Close()
}

func (s *DiskStorage) Remove(key string) error {
	return os.Remove(s.path(key))
}

type StoredFile struct {
	Key     string
	ModTime time.Time
}

func (s *DiskStorage) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var files []StoredFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		files = append(files, StoredFile{Key: entry.Name(), ModTime: info.ModTime()})
	}

	return files, nil
}
