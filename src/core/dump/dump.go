package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"treedump/src/fsutil"
	"treedump/src/log"
)

// ErrMissingSourceDir is returned when the source path does not exist
// or is not a directory. No output is written in that case.
var ErrMissingSourceDir = errors.New("missing source directory")

// Options configures a Dumper
type Options struct {
	// OnFile, if set, is called after each file's block has been written
	OnFile func(path string)
}

// Result summarizes a completed dump
type Result struct {
	FileCount int   `json:"file_count"`
	ByteCount int64 `json:"byte_count"` // content bytes, delimiters excluded
}

// Dumper walks a directory tree and concatenates every regular file's
// path and contents into a single output file. Each file is preceded by
// a marker line carrying its path and followed by a blank line. File
// contents are written verbatim; a file containing the marker text
// itself is dumped unchanged, which makes the format ambiguous to parse
// back but never corrupts neighboring blocks.
type Dumper struct {
	fs   fsutil.FileStore
	opts Options
}

// NewDumper creates a Dumper backed by the given file store
func NewDumper(fileStore fsutil.FileStore, opts Options) *Dumper {
	return &Dumper{
		fs:   fileStore,
		opts: opts,
	}
}

// Run dumps every regular file under sourcePath into outputPath.
// The output file is truncated before traversal begins, even when the
// source tree contains no files. A file that becomes unreadable during
// the walk is skipped with a warning; a failed write to the output file
// aborts the run.
func (d *Dumper) Run(ctx context.Context, sourcePath, outputPath string) (*Result, error) {
	ok, err := d.fs.IsDirectory(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check source directory: %v", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSourceDir, sourcePath)
	}

	out, err := d.fs.CreateFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %v", err)
	}

	result := &Result{}
	walkErr := d.fs.WalkFiles(sourcePath, func(path string, info fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := d.fs.ReadFile(path)
		if err != nil {
			// The file vanished or lost read permission after
			// enumeration. Nothing has been written for it yet, so
			// previous blocks stay intact.
			log.Error(err, "skipping unreadable file", "path", path)
			return nil
		}

		if err := writeBlock(out, path, content); err != nil {
			return err
		}

		result.FileCount++
		result.ByteCount += int64(len(content))
		if d.opts.OnFile != nil {
			d.opts.OnFile(path)
		}
		return nil
	})
	if walkErr != nil {
		out.Close()
		return nil, walkErr
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output file: %v", err)
	}

	return result, nil
}

func writeBlock(w io.Writer, path string, content []byte) error {
	if _, err := fmt.Fprintf(w, "===== 【%s】 =====\n", path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := io.WriteString(w, "\n\n"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
