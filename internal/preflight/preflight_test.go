package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"autounpack/internal/config"
	"autounpack/internal/preflight"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := preflight.CheckDirectoryAccess("test", filepath.Join(dir, "nope")); result.Passed || result.Detail == "" {
		t.Fatalf("expected failure for missing dir, got %+v", result)
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "7zz")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckBinary("7-Zip", bin); !result.Passed || result.Detail != bin {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := preflight.CheckBinary("7-Zip", filepath.Join(dir, "missing")); result.Passed {
		t.Fatal("expected failure for missing binary")
	}
	if result := preflight.CheckBinary("7-Zip", " "); result.Passed || result.Detail != "command not configured" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUsesStepFindsNestedSteps(t *testing.T) {
	steps := []map[string]any{
		{"name": "scan"},
		{"name": "loop", "steps": []any{
			map[string]any{"name": "filter"},
			map[string]any{"name": "archive"},
		}},
	}
	if !preflight.UsesStep(steps, "archive") {
		t.Fatal("expected nested archive step to be found")
	}
	if preflight.UsesStep(steps, "transfer") {
		t.Fatal("did not expect transfer")
	}
}

func TestRunAllChecksArchiverOnlyWhenNeeded(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InfoDir = filepath.Join(base, "info")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	cfg.Flow.Steps = []map[string]any{{"name": "scan"}}

	results := preflight.RunAll(&cfg)
	if len(results) != 2 || len(preflight.Failed(results)) != 0 {
		t.Fatalf("unexpected results: %+v", results)
	}

	cfg.Flow.Steps = append(cfg.Flow.Steps, map[string]any{"name": "archive"})
	cfg.SevenZip.Binary = filepath.Join(base, "no-such-7z")
	failed := preflight.Failed(preflight.RunAll(&cfg))
	if len(failed) != 1 || failed[0].Name != preflight.SevenZipCheck {
		t.Fatalf("expected only the archiver check to fail, got %+v", failed)
	}
}
