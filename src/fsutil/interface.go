package fsutil

import (
	"io"
	"io/fs"
)

// WalkFunc is called by WalkFiles once per regular file found under the root.
// Returning an error stops the walk and propagates the error to the caller.
type WalkFunc func(path string, info fs.FileInfo) error

// FileStore provides an interface for file system operations
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// ReadFileAsStream opens a file and returns a reader
	ReadFileAsStream(path string) (io.ReadCloser, error)

	// CreateFile creates a file, truncating it if it already exists
	CreateFile(path string) (io.WriteCloser, error)

	// MakeDirectory creates a new directory and all necessary parents
	MakeDirectory(path string) error

	// RemoveAll removes a path and any children it contains
	RemoveAll(path string) error

	// IsDirectory reports whether path exists and is a directory.
	// A missing path is not an error; it reports false.
	IsDirectory(path string) (bool, error)

	// WalkFiles visits every regular file under root, recursively.
	// Symlinks are not followed.
	WalkFiles(root string, fn WalkFunc) error

	// GetFileStats returns the total count and size of regular files
	// under a directory, recursively
	GetFileStats(path string) (count int, size int64, err error)
}

// Stat represents statistics about files in a directory
type Stat struct {
	Count int   // Number of files
	Size  int64 // Total size in bytes
}
