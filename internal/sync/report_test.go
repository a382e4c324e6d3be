package sync

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
		ok   bool
	}{
		{0, "0", true},
		{1023, "1023", true},
		{1024, "1024", true},
		{1025, "1.0K", true},
		{1536, "1.5K", true},
		{9999, "9.7K", true},
		{12 << 20, "12.0M", true},
		{3 << 30, "3.0G", true},
		{5 << 40, "5.0T", true},
		{10240 << 40, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		got, ok := formatSize(tt.size)
		if got != tt.want || ok != tt.ok {
			t.Errorf("formatSize(%d) = %q, %v; want %q, %v", tt.size, got, ok, tt.want, tt.ok)
		}
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode fs.FileMode
		want string
	}{
		{0o644, "-rw-r--r--"},
		{fs.ModeDir | 0o755, "drwxr-xr-x"},
		{fs.ModeSymlink | 0o777, "lrwxrwxrwx"},
		{fs.ModeSetuid | 0o755, "-rwsr-xr-x"},
		{fs.ModeSetuid | 0o644, "-rwSr--r--"},
		{fs.ModeSetgid | 0o750, "-rwxr-s---"},
		{fs.ModeDir | fs.ModeSticky | 0o777, "drwxrwxrwt"},
		{fs.ModeDir | fs.ModeSticky | 0o776, "drwxrwxrwT"},
		{fs.ModeNamedPipe | 0o600, "prw-------"},
	}

	for _, tt := range tests {
		if got := modeString(tt.mode); got != tt.want {
			t.Errorf("modeString(%v) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	if got := summary(0o644, 1536); got != "-rw-r--r--    1.5K" {
		t.Errorf("regular summary = %q", got)
	}
	if got := summary(0o644, -1); got != "-rw-r--r--" {
		t.Errorf("unknown size summary = %q", got)
	}
	if got := summary(fs.ModeDir|0o755, 4096); got != "drwxr-xr-x" {
		t.Errorf("directory summary = %q", got)
	}
}

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Created("/new", "-rw-r--r--       3")
	r.Changed("/etc/motd", "-rw-r--r--      12", "-rw-r--r--    1.5K")
	r.Deleted("/old", "drwxr-xr-x")

	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want := []string{
		"/new" + strings.Repeat(" ", 66) + "-rw-r--r--       3",
		"/etc/motd" + strings.Repeat(" ", 40) + "-rw-r--r--      12 → -rw-r--r--    1.5K",
		"/old" + strings.Repeat(" ", 45) + "drwxr-xr-x" + strings.Repeat(" ", 8) + " → delete",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d:\n got %q\nwant %q", i+1, got[i], want[i])
		}
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestReporterErrorIsSticky(t *testing.T) {
	w := &failingWriter{}
	r := NewReporter(w)
	r.Created("/a", "x")
	r.Created("/b", "x")

	if r.Err() == nil {
		t.Fatal("expected write error")
	}
	if w.n != 1 {
		t.Errorf("writer called %d times after failure, want 1", w.n)
	}
}
