package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"treedump/src/log"
)

// LocalFileStore implements FileStore using the local filesystem
type LocalFileStore struct {
	// No fields needed as we're using the standard library directly
}

// NewLocalFileStore creates a new LocalFileStore
func NewLocalFileStore() FileStore {
	return &LocalFileStore{}
}

func (s *LocalFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *LocalFileStore) ReadFileAsStream(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (s *LocalFileStore) CreateFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (s *LocalFileStore) MakeDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

func (s *LocalFileStore) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (s *LocalFileStore) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (s *LocalFileStore) WalkFiles(root string, fn WalkFunc) error {
	// filepath.WalkDir does not follow symlinks, so cyclic links
	// cannot trap the traversal
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable root is fatal; an entry that vanished or a
			// subdirectory that denies listing is skipped so the rest
			// of the tree still gets visited
			if path == root {
				return err
			}
			log.Error(err, "skipping unreadable entry", "path", path)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Error(err, "skipping unreadable entry", "path", path)
			return nil
		}
		return fn(path, info)
	})
}

func (s *LocalFileStore) GetFileStats(path string) (count int, size int64, err error) {
	err = s.WalkFiles(path, func(_ string, info fs.FileInfo) error {
		count++
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return count, size, nil
}
