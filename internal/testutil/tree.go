package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Entry is the observable state of one path in a tree snapshot.
type Entry struct {
	Mode    fs.FileMode
	Content string
	Target  string
}

// WriteFile creates root/rel with content and exactly mode, creating
// missing parents with mode 0755.
func WriteFile(t testing.TB, root, rel, content string, mode fs.FileMode) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), mode.Perm()); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(p, mode); err != nil {
		t.Fatal(err)
	}
	return p
}

// Mkdir creates the directory root/rel with exactly mode.
func Mkdir(t testing.TB, root, rel string, mode fs.FileMode) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(p, mode); err != nil {
		t.Fatal(err)
	}
	return p
}

// Symlink creates root/rel pointing at target.
func Symlink(t testing.TB, root, rel, target string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, p); err != nil {
		t.Fatal(err)
	}
	return p
}

// Snapshot records every entry below root keyed by its slash-separated
// path relative to root with a leading "/". The root itself is not
// included.
func Snapshot(t testing.TB, root string) map[string]Entry {
	t.Helper()
	snap := make(map[string]Entry)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := Entry{Mode: info.Mode()}
		switch {
		case info.Mode().IsRegular():
			b, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			e.Content = string(b)
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			e.Target = target
			// Symlink permissions vary by platform and are never managed.
			e.Mode = fs.ModeSymlink
		}
		snap["/"+filepath.ToSlash(rel)] = e
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", root, err)
	}
	return snap
}
