package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schaermu/fspec/internal/digest"
	"github.com/schaermu/fspec/internal/manifest"
	"github.com/schaermu/fspec/internal/testutil"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "files.fspec")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestSyncFromManifestFile(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFile(t, src, "etc/motd", "hello", 0o644)
	m := writeManifest(t, src, "/etc\ntype=dir\n\n/etc/motd\ntype=reg\nblake3="+digest.Bytes([]byte("hello")).String()+"\n\n")
	root := t.TempDir()

	out, err := execute(t, "", root, m)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := len(strings.Split(strings.TrimSpace(out), "\n")); got != 2 {
		t.Errorf("expected 2 report lines, got %d:\n%s", got, out)
	}

	b, err := os.ReadFile(filepath.Join(root, "etc", "motd"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello" {
		t.Errorf("content = %q", b)
	}
}

func TestSyncFromStdinResolvesSourcesInWorkingDirectory(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFile(t, src, "a", "abc", 0o644)
	chdir(t, src)
	root := t.TempDir()

	_, err := execute(t, "/a\ntype=reg\nblake3="+digest.Bytes([]byte("abc")).String()+"\n\n", root)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestSyncDryRun(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "stale", "x", 0o644)
	before := testutil.Snapshot(t, root)

	out, err := execute(t, "/\ntype=dir\nmode=0700\n\n", "-d", root)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(out, "→ delete") {
		t.Errorf("expected a deletion line, got:\n%s", out)
	}
	if len(testutil.Snapshot(t, root)) != len(before) {
		t.Error("dry run modified the tree")
	}
}

func TestSyncMalformedManifest(t *testing.T) {
	_, err := execute(t, "/b\ntype=reg\n\n/a\ntype=reg\n\n", t.TempDir())
	if !errors.Is(err, manifest.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestSyncArgs(t *testing.T) {
	if _, err := execute(t, ""); err == nil {
		t.Error("expected error without rootdir")
	}
	if _, err := execute(t, "", "a", "b", "c"); err == nil {
		t.Error("expected error with too many arguments")
	}
}

func TestSyncMissingManifest(t *testing.T) {
	if _, err := execute(t, "", t.TempDir(), filepath.Join(t.TempDir(), "missing.fspec")); err == nil {
		t.Error("expected error for missing manifest file")
	}
}
