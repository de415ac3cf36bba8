package sevenzip_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"autounpack/internal/services/sevenzip"
)

type exitError struct{ code int }

func (e exitError) Error() string { return "exit status" }
func (e exitError) ExitCode() int { return e.code }

type stubExecutor struct {
	stdout []string
	stderr []string
	err    error
	calls  int
	binary string
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	s.calls++
	s.binary = binary
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.stdout {
		onStdout(line)
	}
	for _, line := range s.stderr {
		onStderr(line)
	}
	return s.err
}

const listing7z = `
7-Zip 23.01 (x64) : Copyright (c) 1999-2023 Igor Pavlov : 2023-06-20

Scanning the drive for archives:
1 file, 2048 bytes (2 KiB)

Listing archive: /data/a.7z.001

--
Path = /data/a.7z.001
Type = Split
Physical Size = 1024
Volumes = 5
Total Physical Size = 5120
----
Path = a.7z
Size = 5120
--
Path = a.7z
Type = 7z
Physical Size = 5120
Headers Size = 178
Method = LZMA2:24
Solid = +
Blocks = 1

   Date      Time    Attr         Size   Compressed  Name
------------------- ----- ------------ ------------  ------------------------
2022-11-11 01:04:14 D....            0            0  image
2022-11-11 01:04:14 ....A        56792         4812  image/a.svg
2022-11-11 01:04:15 ....A           12               image/ünïcode.txt
------------------- ----- ------------ ------------  ------------------------
2022-11-11 01:04:15              56804         4812  2 files, 1 folders`

func newClient(t *testing.T, exec *stubExecutor, opts ...sevenzip.Option) *sevenzip.Client {
	t.Helper()
	client, err := sevenzip.New("7zz", append([]sevenzip.Option{sevenzip.WithExecutor(exec)}, opts...)...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := sevenzip.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	if _, err := sevenzip.New("7z", sevenzip.WithEncoding("klingon")); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestListBuildsArgsAndParsesOutput(t *testing.T) {
	exec := &stubExecutor{stdout: strings.Split(listing7z, "\n")}
	client := newClient(t, exec, sevenzip.WithExtraArgs("-sccUTF-8"))

	res, err := client.List(context.Background(), "/data/a.7z.001", "secret")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	wantArgs := []string{"l", "/data/a.7z.001", "-psecret", "-y", "-sccUTF-8"}
	if exec.binary != "7zz" || !reflect.DeepEqual(exec.args[0], wantArgs) {
		t.Fatalf("unexpected invocation %s %v", exec.binary, exec.args[0])
	}
	if res.Code != sevenzip.CodeNoError || res.Err() != nil {
		t.Fatalf("expected clean result, got %s", res.Code)
	}
	if !res.IsVolume {
		t.Fatal("expected split archive to be a volume")
	}
	if res.Attrs.Type() != "7z" {
		t.Fatalf("expected type 7z, got %q", res.Attrs.Type())
	}
	if n, ok := res.Attrs.Volumes(); !ok || n != 5 {
		t.Fatalf("expected 5 volumes, got %d %v", n, ok)
	}
	if _, ok := res.Attrs["path"]; ok {
		t.Fatal("path attribute should not be kept")
	}
	if res.Attrs["headers_size"] != "178" {
		t.Fatalf("expected headers_size 178, got %q", res.Attrs["headers_size"])
	}

	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", res.Entries)
	}
	dir, svg, txt := res.Entries[0], res.Entries[1], res.Entries[2]
	if !dir.IsDir() || dir.Name != "image" {
		t.Fatalf("unexpected directory entry %+v", dir)
	}
	if svg.IsDir() || svg.Attr != "A" || svg.Size == nil || *svg.Size != 56792 || *svg.Compressed != 4812 {
		t.Fatalf("unexpected file entry %+v", svg)
	}
	if svg.DateTime != "2022-11-11 01:04:14" || svg.Name != "image/a.svg" {
		t.Fatalf("unexpected file entry %+v", svg)
	}
	if txt.Compressed != nil || txt.Name != "image/ünïcode.txt" {
		t.Fatalf("unexpected unicode entry %+v", txt)
	}
}

func TestExtractArgs(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec)
	if _, err := client.Extract(context.Background(), "/a.zip", "", "/tmp/out", true); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if _, err := client.Extract(context.Background(), "/a.zip", "pw", "/tmp/out", false); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	want := [][]string{
		{"x", "/a.zip", "-p", "-y", "-aou", "-o/tmp/out"},
		{"e", "/a.zip", "-ppw", "-y", "-aou", "-o/tmp/out"},
	}
	if !reflect.DeepEqual(exec.args, want) {
		t.Fatalf("unexpected args %v", exec.args)
	}
	if _, err := client.Extract(context.Background(), "/a.zip", "", "", true); err == nil {
		t.Fatal("expected error without output directory")
	}
}

func TestTestClassifiesExitCodes(t *testing.T) {
	cases := []struct {
		name   string
		exit   int
		stderr []string
		want   sevenzip.Code
	}{
		{"warning", 1, nil, sevenzip.CodeWarning},
		{"fatal", 2, []string{"ERROR: Wrong password : a.txt"}, sevenzip.CodeFatal},
		{"headers", 2, []string{"ERROR: /data/a.rar", "Headers Error in encrypted archive."}, sevenzip.CodeHeadersError},
		{"command line", 7, nil, sevenzip.CodeCommandLine},
		{"memory", 8, nil, sevenzip.CodeNotEnoughMemory},
		{"stopped", 255, nil, sevenzip.CodeUserStopped},
		{"unknown", 42, nil, sevenzip.CodeUnknown},
		{"signal", -1, nil, sevenzip.CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, &stubExecutor{stderr: tc.stderr, err: exitError{tc.exit}})
			res, err := client.Test(context.Background(), "/data/a.rar", "")
			if err != nil {
				t.Fatalf("Test returned error: %v", err)
			}
			if res.Code != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, res.Code)
			}
			if res.ExitCode != tc.exit {
				t.Fatalf("expected exit %d, got %d", tc.exit, res.ExitCode)
			}
			toolErr := res.Err()
			if !errors.Is(toolErr, sevenzip.ErrToolFailed) {
				t.Fatalf("expected ErrToolFailed, got %v", toolErr)
			}
		})
	}
}

func TestRunReturnsLaunchFailure(t *testing.T) {
	client := newClient(t, &stubExecutor{err: errors.New("executable file not found")})
	if _, err := client.List(context.Background(), "/a.7z", ""); err == nil {
		t.Fatal("expected launch failure to surface")
	}
}

func TestWithEncodingDecodesOutput(t *testing.T) {
	// "测试" in GBK.
	gbk := string([]byte{0xb2, 0xe2, 0xca, 0xd4})
	exec := &stubExecutor{stdout: []string{"Comment = " + gbk}}
	client := newClient(t, exec, sevenzip.WithEncoding("gbk"))
	res, err := client.List(context.Background(), "/a.zip", "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got := res.Attrs["comment"]; got != "测试" {
		t.Fatalf("expected decoded comment, got %q", got)
	}
}

func TestPolicyLevels(t *testing.T) {
	headers := &sevenzip.Result{
		ExitCode: 2,
		Code:     sevenzip.CodeHeadersError,
		Message:  "ERROR: x.rar\nHeaders Error in encrypted archive.",
		Attrs:    sevenzip.Attrs{"type": "Rar", "characteristics": "Recovery Encrypted"},
	}
	fatal := &sevenzip.Result{ExitCode: 2, Code: sevenzip.CodeFatal, Message: "Wrong password", Attrs: sevenzip.Attrs{"type": "Rar"}}
	clean := &sevenzip.Result{Code: sevenzip.CodeNoError}
	noRecovery := &sevenzip.Result{
		ExitCode: 2,
		Code:     sevenzip.CodeHeadersError,
		Message:  "Headers Error in encrypted archive.",
		Attrs:    sevenzip.Attrs{"type": "Rar"},
	}

	strict := sevenzip.NewPolicy(sevenzip.ModeStrict, sevenzip.DefaultRecoverable())
	greedy := sevenzip.NewPolicy(sevenzip.ModeGreedy, sevenzip.DefaultRecoverable())

	checks := []struct {
		name   string
		policy sevenzip.Policy
		result *sevenzip.Result
		want   sevenzip.Level
	}{
		{"strict clean", strict, clean, sevenzip.LevelSuccess},
		{"strict headers", strict, headers, sevenzip.LevelError},
		{"greedy headers", greedy, headers, sevenzip.LevelWarning},
		{"greedy fatal", greedy, fatal, sevenzip.LevelError},
		{"greedy without recovery record", greedy, noRecovery, sevenzip.LevelError},
		{"nil", greedy, nil, sevenzip.LevelError},
	}
	for _, c := range checks {
		if got := c.policy.Level(c.result); got != c.want {
			t.Fatalf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestVolumePaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"a.7z.001", "a.7z.002", "a.7z.003", "a.7z.004", "a.7z.005",
		"b.zip", "b.z01", "b.z02",
		"c.part1.rar", "c.part2.rar",
		"d.part01.rar", "d.part02.rar", "d.part03.rar",
		"single.7z",
	)
	join := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(dir, n)
		}
		return out
	}

	cases := []struct {
		file     string
		kind     string
		isVolume bool
		want     []string
	}{
		{"a.7z.003", "7z", true, join("a.7z.001", "a.7z.002", "a.7z.003", "a.7z.004", "a.7z.005")},
		{"b.z02", "zip", true, join("b.zip", "b.z01", "b.z02")},
		{"c.part2.rar", "Rar5", true, join("c.part1.rar", "c.part2.rar")},
		{"d.part02.rar", "Rar", true, join("d.part01.rar", "d.part02.rar", "d.part03.rar")},
		{"single.7z", "7z", false, join("single.7z")},
		{"single.7z", "7z", true, join("single.7z")},
	}
	for _, c := range cases {
		got := sevenzip.VolumePaths(filepath.Join(dir, c.file), c.kind, c.isVolume)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.file, c.want, got)
		}
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"/x/a.7z.001":    "a",
		"/x/a.part1.rar": "a",
		"/x/b.zip":       "b",
		"/x/c.tar.gz":    "c.tar",
		"/x/plain":       "plain",
		"/x/.hidden":     ".hidden",
	}
	for in, want := range cases {
		if got := sevenzip.BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
