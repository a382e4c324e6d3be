package main

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTarFromStdin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetIn(strings.NewReader("/greeting\ntype=reg\nsource=hello\n\n"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	tr := tar.NewReader(&stdout)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Name != "greeting" || hdr.Size != 2 {
		t.Errorf("unexpected header %+v", hdr)
	}
	b, _ := io.ReadAll(tr)
	if string(b) != "hi" {
		t.Errorf("content = %q", b)
	}
	if _, err := tr.Next(); err != io.EOF {
		t.Errorf("expected end of archive, got %v", err)
	}
}
