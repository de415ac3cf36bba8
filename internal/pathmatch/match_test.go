package pathmatch_test

import (
	"os"
	"path/filepath"
	"testing"

	"autounpack/internal/pathmatch"
	"autounpack/internal/store"
)

func TestMatchAny(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "sub", "movie.part1.rar")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	fileRef := store.NewFileRef(file, root)
	dirRef := store.NewFileRef(filepath.Join(root, "sub"), root)

	cases := []struct {
		name     string
		patterns []string
		ref      store.FileRef
		want     bool
	}{
		{"everything", []string{"**/*"}, fileRef, true},
		{"relative extension", []string{"**/*.rar"}, fileRef, true},
		{"relative direct", []string{"sub/*.rar"}, fileRef, true},
		{"case sensitive", []string{"**/*.RAR"}, fileRef, false},
		{"dir suffix matches dir", []string{"**/*/"}, dirRef, true},
		{"dir suffix skips file", []string{"**/*/"}, fileRef, false},
		{"no patterns", nil, fileRef, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pathmatch.MatchAny(tc.patterns, tc.ref); got != tc.want {
				t.Fatalf("MatchAny(%v) = %v, want %v", tc.patterns, got, tc.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	root := t.TempDir()
	var refs []store.FileRef
	for _, name := range []string{"a.zip", "b.txt", "c.zip"} {
		path := filepath.Join(root, name)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		refs = append(refs, store.NewFileRef(path, root))
	}
	got := pathmatch.Select(refs, []string{"*.zip"}, []string{"c.*"})
	if len(got) != 1 || got[0].Name() != "a.zip" {
		t.Fatalf("unexpected selection: %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := pathmatch.Validate([]string{"**/*.zip"}); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if err := pathmatch.Validate([]string{"[abc"}); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
