package fileops_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/plugins/fileops"
	"autounpack/internal/store"
)

func newDeps(t *testing.T) (*plugin.Registry, plugin.Deps) {
	t.Helper()
	reg := plugin.NewRegistry(logging.NewNop())
	reg.Register(fileops.Definitions()...)
	deps := plugin.Deps{
		Store:    store.New(),
		Registry: reg,
		Logger:   logging.NewNop(),
		Global:   plugin.Global{InfoDir: filepath.Join(t.TempDir(), "info")},
	}
	return reg, deps
}

func run(t *testing.T, reg *plugin.Registry, deps plugin.Deps, raw map[string]any) error {
	t.Helper()
	p, err := reg.Resolve(raw, deps)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return p.Execute(context.Background())
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// relPaths lists the refs under key relative to root, sorted.
func relPaths(t *testing.T, st *store.Store, key, root string) []string {
	t.Helper()
	ctx, err := st.Load(key)
	if err != nil {
		t.Fatalf("Load(%q) returned error: %v", key, err)
	}
	out := make([]string, 0, ctx.Len())
	for _, ref := range ctx.Files {
		rel, err := filepath.Rel(root, ref.Path)
		if err != nil {
			t.Fatalf("Rel returned error: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

// tree lists every file below root relative to it, sorted.
func tree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	sort.Strings(out)
	return out
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.zip", "notes.txt", "sub/b.zip", "sub/deeper/c.rar")
	if err := os.MkdirAll(filepath.Join(root, "sub", "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []struct {
		name string
		raw  map[string]any
		want []string
	}{
		{"defaults", map[string]any{}, []string{"a.zip", "notes.txt", "sub/b.zip", "sub/deeper/c.rar"}},
		{"deep includes", map[string]any{"includes": []any{"*.zip", "*.rar"}}, []string{"a.zip", "sub/b.zip", "sub/deeper/c.rar"}},
		{"shallow", map[string]any{"includes": []any{"*.zip"}, "deep": false}, []string{"a.zip"}},
		{"excludes", map[string]any{"excludes": []any{"**/*.txt", "sub/deeper/**"}}, []string{"a.zip", "sub/b.zip"}},
		{"directories", map[string]any{"include_dir": true, "includes": []any{"**/*/"}}, []string{"sub", "sub/deeper", "sub/empty"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, deps := newDeps(t)
			raw := map[string]any{"name": "scan", "dir": root, "save_key": "found"}
			for k, v := range tc.raw {
				raw[k] = v
			}
			if err := run(t, reg, deps, raw); err != nil {
				t.Fatalf("Execute returned error: %v", err)
			}
			assertStrings(t, relPaths(t, deps.Store, "found", root), tc.want)

			ctx, _ := deps.Store.Load("found")
			for _, ref := range ctx.Files {
				if ref.SearchRoot != root {
					t.Fatalf("expected search root %s, got %s", root, ref.SearchRoot)
				}
			}
		})
	}
}

func TestScanMissingDirectory(t *testing.T) {
	reg, deps := newDeps(t)
	err := run(t, reg, deps, map[string]any{"name": "scan", "dir": filepath.Join(t.TempDir(), "gone")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func seedContext(t *testing.T, deps plugin.Deps, root string, names ...string) {
	t.Helper()
	touch(t, root, names...)
	refs := make([]store.FileRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, store.NewFileRef(filepath.Join(root, filepath.FromSlash(name)), root))
	}
	deps.Store.Save(store.DefaultKey, store.NewContext(refs...))
}

func TestRenameRules(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	seedContext(t, deps, root, "[Group] Show - 01 [1080p].mkv", "Show.S01E02.MKV", "电影_预告.mp4")
	touch(t, root, "Show - 01.mkv")

	err := run(t, reg, deps, map[string]any{
		"name":     "rename",
		"save_key": "renamed",
		"rules": []any{
			map[string]any{"mode": "replace", "search": "[Group] ", "replace": ""},
			map[string]any{"mode": "re", "pattern": `\s*\[\d+p\]`, "replace": ""},
			map[string]any{"mode": "re", "pattern": `\.mkv$`, "replace": ".mkv", "flags": "i"},
			map[string]any{"mode": "re", "pattern": `^(\w+)_(\w+)`, "replace": `\2-\1`},
			map[string]any{"mode": "replace", "search": ".", "replace": " ", "count": 1},
		},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	want := []string{"Show - 01(1) mkv", "Show S01E02.mkv", "预告-电影 mp4"}
	assertStrings(t, relPaths(t, deps.Store, "renamed", root), want)
	assertStrings(t, tree(t, root), []string{"Show - 01(1) mkv", "Show - 01.mkv", "Show S01E02.mkv", "预告-电影 mp4"})
}

func TestRenameRegexCount(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	seedContext(t, deps, root, "a-b-c-d.txt")
	err := run(t, reg, deps, map[string]any{
		"name":  "rename",
		"rules": []any{map[string]any{"mode": "re", "pattern": "-", "replace": "$", "count": 2}},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, relPaths(t, deps.Store, store.DefaultKey, root), []string{"a$b$c-d.txt"})
}

func TestRenameASCIIFlag(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	seedContext(t, deps, root, "ab中文.txt")
	err := run(t, reg, deps, map[string]any{
		"name":  "rename",
		"rules": []any{map[string]any{"mode": "re", "pattern": `^\w+`, "replace": "x", "flags": "a"}},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, relPaths(t, deps.Store, store.DefaultKey, root), []string{"x中文.txt"})
}

func TestRenameInvalidRules(t *testing.T) {
	reg, deps := newDeps(t)
	bad := []map[string]any{
		{"mode": "re", "pattern": "(", "replace": ""},
		{"mode": "re", "pattern": "a", "replace": "", "flags": "x"},
		{"mode": "re", "pattern": "a", "replace": "", "count": -1},
		{"mode": "replace", "replace": "b"},
		{"mode": "glob", "search": "a"},
	}
	for _, rule := range bad {
		_, err := reg.Resolve(map[string]any{"name": "rename", "rules": []any{rule}}, deps)
		if !errors.Is(err, plugin.ErrConfigInvalid) {
			t.Fatalf("expected ErrConfigInvalid for %v, got %v", rule, err)
		}
	}
}

func TestTransferCopyKeepsStructure(t *testing.T) {
	reg, deps := newDeps(t)
	src := t.TempDir()
	dst := t.TempDir()
	seedContext(t, deps, src, "a.txt", "sub/b.txt")
	touch(t, dst, "a.txt")

	err := run(t, reg, deps, map[string]any{"name": "transfer", "mode": "copy", "target_dir": dst, "save_key": "copied"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, relPaths(t, deps.Store, "copied", dst), []string{"a(1).txt", "sub/b.txt"})
	assertStrings(t, tree(t, src), []string{"a.txt", "sub/b.txt"})
	assertStrings(t, tree(t, dst), []string{"a(1).txt", "a.txt", "sub/b.txt"})

	copied, _ := deps.Store.Load("copied")
	for _, ref := range copied.Files {
		if ref.SearchRoot != dst {
			t.Fatalf("expected search root %s, got %s", dst, ref.SearchRoot)
		}
	}
}

func TestTransferMoveOverwriteModes(t *testing.T) {
	for _, tc := range []struct {
		mode    string
		want    []string
		content string
	}{
		{mode: "skip", want: []string{"b.txt"}, content: "old"},
		{mode: "overwrite", want: []string{"a.txt", "b.txt"}, content: "sub/a.txt"},
	} {
		t.Run(tc.mode, func(t *testing.T) {
			reg, deps := newDeps(t)
			src := t.TempDir()
			dst := t.TempDir()
			seedContext(t, deps, src, "sub/a.txt", "b.txt")
			if err := os.WriteFile(filepath.Join(dst, "a.txt"), []byte("old"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}

			err := run(t, reg, deps, map[string]any{
				"name":           "transfer",
				"mode":           "move",
				"target_dir":     dst,
				"keep_structure": false,
				"overwrite_mode": tc.mode,
			})
			if err != nil {
				t.Fatalf("Execute returned error: %v", err)
			}
			assertStrings(t, relPaths(t, deps.Store, store.DefaultKey, dst), tc.want)
			data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != tc.content {
				t.Fatalf("unexpected content %q", data)
			}
			if _, err := os.Stat(filepath.Join(src, "b.txt")); !os.IsNotExist(err) {
				t.Fatalf("expected b.txt to be moved, stat err = %v", err)
			}
		})
	}
}

func TestTransferRequiresMode(t *testing.T) {
	reg, deps := newDeps(t)
	_, err := reg.Resolve(map[string]any{"name": "transfer", "target_dir": t.TempDir()}, deps)
	if !errors.Is(err, plugin.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	seedContext(t, deps, root, "a.txt", "dir/b.txt")
	ctx, _ := deps.Store.Load(store.DefaultKey)
	ctx.Files = append(ctx.Files,
		store.NewFileRef(filepath.Join(root, "dir"), root),
		store.NewFileRef(filepath.Join(root, "missing.txt"), root),
	)
	deps.Store.Save("trash", ctx)
	touch(t, root, "keep.txt")

	if err := run(t, reg, deps, map[string]any{"name": "remove", "load_key": "trash"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, tree(t, root), []string{"keep.txt"})
	after, err := deps.Store.Load("trash")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !after.Empty() {
		t.Fatalf("expected emptied context, got %d refs", after.Len())
	}
}

func TestFlatUnlimited(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	touch(t, root, "top.txt", "a/one.txt", "a/b/two.txt", "c/top.txt")

	if err := run(t, reg, deps, map[string]any{"name": "flat", "dir": root}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, tree(t, root), []string{"one.txt", "top(1).txt", "top.txt", "two.txt"})
	data, _ := os.ReadFile(filepath.Join(root, "top.txt"))
	if string(data) != "top.txt" {
		t.Fatalf("root file was replaced: %q", data)
	}
}

func TestFlatDepthMovesWholeDirectories(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	touch(t, root, "a/one.txt", "a/b/two.txt", "a/b/c/three.txt")

	if err := run(t, reg, deps, map[string]any{"name": "flat", "dir": root, "depth": 1}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	assertStrings(t, tree(t, root), []string{"b/c/three.txt", "b/two.txt", "one.txt"})
}

func TestFlatRejectsBadDepth(t *testing.T) {
	reg, deps := newDeps(t)
	_, err := reg.Resolve(map[string]any{"name": "flat", "dir": t.TempDir(), "depth": 0}, deps)
	if !errors.Is(err, plugin.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestEmpty(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	touch(t, root, "keep/file.txt")
	for _, dir := range []string{"x/y/z", "w"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := run(t, reg, deps, map[string]any{"name": "empty", "dir": root}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep" {
		t.Fatalf("unexpected entries after cleanup: %v", entries)
	}

	if err := run(t, reg, deps, map[string]any{"name": "empty", "dir": filepath.Join(root, "gone")}); err != nil {
		t.Fatalf("missing directory should be skipped, got %v", err)
	}
}

func TestLogWritesNumberedArtifacts(t *testing.T) {
	reg, deps := newDeps(t)
	root := t.TempDir()
	seedContext(t, deps, root, "a.txt")

	for i := 0; i < 2; i++ {
		if err := run(t, reg, deps, map[string]any{"name": "log"}); err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
	}
	for _, name := range []string{"log.json", "log(1).json"} {
		data, err := os.ReadFile(filepath.Join(deps.Global.InfoDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var doc struct {
			Files []struct {
				Path       string `json:"path"`
				SearchPath string `json:"search_path"`
			} `json:"file_datas"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if len(doc.Files) != 1 || doc.Files[0].Path != filepath.Join(root, "a.txt") || doc.Files[0].SearchPath != root {
			t.Fatalf("unexpected log content %+v", doc)
		}
	}
}
