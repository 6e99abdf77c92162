package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"sonaris/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_OK(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), 1)
	if !result.Passed {
		t.Fatalf("expected pass for 1-byte floor, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_Insufficient(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), ^uint64(0))
	if result.Passed {
		t.Fatal("expected failure for impossible floor")
	}
}

func TestCheckInputReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dive.aris")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if result := CheckInputReadable(path); !result.Passed {
		t.Fatalf("expected pass for readable file, got: %s", result.Detail)
	}
	if result := CheckInputReadable(filepath.Join(dir, "missing.aris")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
	if result := CheckInputReadable(dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dive.aris")
	if err := os.WriteFile(input, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.OutputDir = dir

	results := RunAll(&cfg, []string{input})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}

	results = RunAll(&cfg, []string{filepath.Join(dir, "missing.aris")})
	if AllPassed(results) {
		t.Fatal("expected missing input to fail")
	}
}
