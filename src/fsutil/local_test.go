package fsutil_test

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"treedump/src/fsutil"
)

func TestWalkFilesVisitsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "top.txt"), "top")
	mustMkdir(t, filepath.Join(root, "sub", "deep"))
	mustWrite(t, filepath.Join(root, "sub", "mid.txt"), "mid")
	mustWrite(t, filepath.Join(root, "sub", "deep", "leaf.txt"), "leaf")

	// A symlinked directory must not be descended into
	if err := os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")); err != nil {
		t.Logf("symlink not supported, skipping link check: %v", err)
	}

	store := fsutil.NewLocalFileStore()
	var got []string
	err := store.WalkFiles(root, func(path string, info fs.FileInfo) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		got = append(got, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkFiles() error = %v", err)
	}

	want := []string{
		filepath.Join("sub", "deep", "leaf.txt"),
		filepath.Join("sub", "mid.txt"),
		"top.txt",
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("WalkFiles() visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WalkFiles() visited %v, want %v", got, want)
			break
		}
	}
}

func TestWalkFilesSkipsUnreadableSubdir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored when running as root")
	}

	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ok.txt"), "readable")
	locked := filepath.Join(root, "locked")
	mustMkdir(t, locked)
	mustWrite(t, filepath.Join(locked, "hidden.txt"), "unreachable")

	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatalf("failed to lock directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chmod(locked, 0755)
	})

	store := fsutil.NewLocalFileStore()
	var got []string
	err := store.WalkFiles(root, func(path string, info fs.FileInfo) error {
		got = append(got, path)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkFiles() error = %v, want unreadable subdir skipped", err)
	}
	if len(got) != 1 || got[0] != filepath.Join(root, "ok.txt") {
		t.Errorf("WalkFiles() visited %v, want only ok.txt", got)
	}
}

func TestWalkFilesMissingRoot(t *testing.T) {
	store := fsutil.NewLocalFileStore()
	err := store.WalkFiles(filepath.Join(t.TempDir(), "nope"), func(path string, info fs.FileInfo) error {
		t.Errorf("WalkFiles() visited %s under a missing root", path)
		return nil
	})
	if err == nil {
		t.Errorf("WalkFiles() error = nil, want missing root to fail")
	}
}

func TestGetFileStats(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.txt"), "12345")
	mustMkdir(t, filepath.Join(root, "nested"))
	mustWrite(t, filepath.Join(root, "nested", "b.txt"), "123")
	mustWrite(t, filepath.Join(root, "nested", "c.txt"), "")

	store := fsutil.NewLocalFileStore()
	count, size, err := store.GetFileStats(root)
	if err != nil {
		t.Fatalf("GetFileStats() error = %v", err)
	}
	if count != 3 {
		t.Errorf("GetFileStats() count = %d, want 3", count)
	}
	if size != 8 {
		t.Errorf("GetFileStats() size = %d, want 8", size)
	}
}

func TestIsDirectory(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "file.txt"), "x")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "existing directory",
			path: root,
			want: true,
		},
		{
			name: "regular file",
			path: filepath.Join(root, "file.txt"),
			want: false,
		},
		{
			name: "missing path",
			path: filepath.Join(root, "nope"),
			want: false,
		},
	}

	store := fsutil.NewLocalFileStore()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.IsDirectory(tt.path)
			if err != nil {
				t.Fatalf("IsDirectory() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDirectory(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestCreateFileTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	store := fsutil.NewLocalFileStore()

	writeAll(t, store, path, "a much longer first version")
	writeAll(t, store, path, "short")

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(got) != "short" {
		t.Errorf("file content = %q, want %q", got, "short")
	}
}

func writeAll(t *testing.T, store fsutil.FileStore, path, content string) {
	t.Helper()
	w, err := store.CreateFile(path)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}
