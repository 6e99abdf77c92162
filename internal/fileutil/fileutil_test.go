package fileutil_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sonaris/internal/fileutil"
)

func TestWriteFileAtomicPublishesContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "frame_0001.png")

	if err := fileutil.WriteFileAtomic(target, []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), fileutil.PartialSuffix) {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}
}

func TestWriteStreamAtomicRemovesPartialOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "frame.png")
	boom := errors.New("boom")

	err := fileutil.WriteStreamAtomic(target, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("half"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}

	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("target must not exist after failure, stat err: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}
