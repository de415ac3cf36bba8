package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"autounpack/internal/store"
)

func TestNewStoreHasEmptyDefault(t *testing.T) {
	s := store.New()
	ctx, err := s.Load(store.DefaultKey)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ctx.Empty() {
		t.Fatalf("expected empty default context, got %d refs", ctx.Len())
	}
}

func TestLoadMissingKey(t *testing.T) {
	s := store.New()
	if _, err := s.Load("missing"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSaveCopiesInput(t *testing.T) {
	root := t.TempDir()
	s := store.New()
	refs := []store.FileRef{
		store.NewFileRef(filepath.Join(root, "a"), root),
		store.NewFileRef(filepath.Join(root, "b"), root),
	}
	ctx := store.Context{Files: refs}
	s.Save("k", ctx)

	refs[0] = store.NewFileRef(filepath.Join(root, "mutated"), root)

	loaded, err := s.Load("k")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Files[0].Name() != "a" {
		t.Fatalf("stored context changed after caller mutation: %v", loaded.Files)
	}

	loaded.Files[1] = store.NewFileRef(filepath.Join(root, "other"), root)
	again, _ := s.Load("k")
	if again.Files[1].Name() != "b" {
		t.Fatalf("stored context changed after loader mutation: %v", again.Files)
	}
}

func TestSaveDeduplicates(t *testing.T) {
	root := t.TempDir()
	ref := store.NewFileRef(filepath.Join(root, "a"), root)
	s := store.New()
	s.Save("k", store.Context{Files: []store.FileRef{ref, ref}})
	loaded, _ := s.Load("k")
	if loaded.Len() != 1 {
		t.Fatalf("expected 1 ref, got %d", loaded.Len())
	}
}

func TestResetDropsKeys(t *testing.T) {
	s := store.New()
	s.Save("extra", store.NewContext())
	s.Reset()
	keys := s.Keys()
	if len(keys) != 1 || keys[0] != store.DefaultKey {
		t.Fatalf("unexpected keys after reset: %v", keys)
	}
}

func TestRelativePath(t *testing.T) {
	root := t.TempDir()
	ref := store.NewFileRef(filepath.Join(root, "x", "y.txt"), root)
	if got := ref.RelativePath(); got != filepath.Join("x", "y.txt") {
		t.Fatalf("RelativePath = %q", got)
	}
	outside := store.NewFileRef(filepath.Join(root, "..", "z.txt"), root)
	if got := outside.RelativePath(); got != "z.txt" {
		t.Fatalf("RelativePath outside root = %q", got)
	}
}

func TestUnionAndSubtract(t *testing.T) {
	root := t.TempDir()
	a := store.NewFileRef(filepath.Join(root, "a"), root)
	b := store.NewFileRef(filepath.Join(root, "b"), root)
	c := store.NewFileRef(filepath.Join(root, "c"), root)

	union := store.Union(store.NewContext(a, b), store.NewContext(b, c))
	if union.Len() != 3 {
		t.Fatalf("expected 3 refs in union, got %d", union.Len())
	}
	rest := union.Subtract(store.NewContext(b))
	if rest.Len() != 2 || rest.Contains(b) {
		t.Fatalf("unexpected subtract result: %v", rest.Files)
	}
}
