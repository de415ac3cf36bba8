package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "dst")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree returned error: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "nested", "f.txt"))
	if err != nil || string(got) != "data" {
		t.Fatalf("copied file missing or wrong: %q, %v", got, err)
	}
}

func TestMoveDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scratch")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "archive")
	if err := Move(src, dst); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "a")); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
}

func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.json")
	if got := NextAvailablePath(file, false); got != file {
		t.Fatalf("expected unchanged path, got %q", got)
	}
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report(1).json"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NextAvailablePath(file, false); got != filepath.Join(dir, "report(2).json") {
		t.Fatalf("unexpected file candidate %q", got)
	}

	sub := filepath.Join(dir, "a.b")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := NextAvailablePath(sub, true); got != filepath.Join(dir, "a.b(1)") {
		t.Fatalf("unexpected dir candidate %q", got)
	}
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "keep", "f"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := RemoveEmptyDirs(root)
	if err != nil {
		t.Fatalf("RemoveEmptyDirs returned error: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed dirs, got %v", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "keep")); err != nil {
		t.Fatalf("non-empty dir removed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root removed: %v", err)
	}
}
