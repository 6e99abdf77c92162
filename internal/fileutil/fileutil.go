package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PartialSuffix is appended to in-flight output files until they are renamed
// into place. Anything still carrying the suffix after a run is garbage from
// an interrupted conversion, never a valid artifact.
const PartialSuffix = ".partial"

// WriteFileAtomic publishes data at path by writing a sibling partial file and
// renaming it over the destination once fully flushed. The partial file is
// removed on any failure so interrupted runs leave no valid-looking output.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return writeAtomic(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteStreamAtomic is WriteFileAtomic for callers that produce output
// incrementally through an io.Writer.
func WriteStreamAtomic(path string, mode os.FileMode, fn func(io.Writer) error) error {
	return writeAtomic(path, mode, fn)
}

func writeAtomic(path string, mode os.FileMode, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+PartialSuffix)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := fn(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod partial file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync partial file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish %q: %w", path, err)
	}
	return nil
}
