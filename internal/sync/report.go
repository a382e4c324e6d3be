package sync

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// Reporter prints one line per mutated entry:
//
//	/etc/motd                                        -rw-r--r--      12 → -rw-r--r--    1.5K
//	/etc/new                                                              -rw-r--r--       3
//	/etc/old                                         -rw-r--r--       3 → delete
//
// Write errors are sticky and surface through Err.
type Reporter struct {
	w   io.Writer
	err error
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Changed reports an entry replaced or re-moded in place.
func (r *Reporter) Changed(path, before, after string) {
	r.printf("%-48s %-18s → %s\n", path, before, after)
}

// Created reports an entry that did not exist.
func (r *Reporter) Created(path, after string) {
	r.printf("%-69s %s\n", path, after)
}

// Deleted reports an entry about to be removed.
func (r *Reporter) Deleted(path, before string) {
	r.printf("%-48s %-18s → delete\n", path, before)
}

// Err returns the first write error.
func (r *Reporter) Err() error {
	return r.err
}

func (r *Reporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// summary renders the kind, permissions and, for regular files, the size
// of an entry. A negative size is omitted.
func summary(mode fs.FileMode, size int64) string {
	s := modeString(mode)
	if mode.IsRegular() {
		if sz, ok := formatSize(size); ok {
			s += fmt.Sprintf(" %7s", sz)
		}
	}
	return s
}

// modeString renders mode the way ls -l does.
func modeString(mode fs.FileMode) string {
	buf := []byte("----------")
	switch {
	case mode&fs.ModeDir != 0:
		buf[0] = 'd'
	case mode&fs.ModeSymlink != 0:
		buf[0] = 'l'
	case mode&fs.ModeCharDevice != 0:
		buf[0] = 'c'
	case mode&fs.ModeDevice != 0:
		buf[0] = 'b'
	case mode&fs.ModeSocket != 0:
		buf[0] = 's'
	case mode&fs.ModeNamedPipe != 0:
		buf[0] = 'p'
	}
	const rwx = "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			buf[1+i] = rwx[i]
		}
	}
	special := func(i int, set bool, on byte) {
		if !set {
			return
		}
		if buf[i] == 'x' {
			buf[i] = on
		} else {
			buf[i] = on - 'a' + 'A'
		}
	}
	special(3, mode&fs.ModeSetuid != 0, 's')
	special(6, mode&fs.ModeSetgid != 0, 's')
	special(9, mode&fs.ModeSticky != 0, 't')
	return string(buf)
}

// formatSize renders size in steps of 1024 with one fractional digit for
// scaled values: 1024, 1.5K, 12.0M. It reports false when the integer
// part would need more than four digits.
func formatSize(size int64) (string, bool) {
	if size < 0 {
		return "", false
	}
	const units = "KMGT"
	s, r, unit := size, int64(0), 0
	for s > 1024 && unit < len(units) {
		r = s
		s /= 1024
		unit++
	}
	if s > 9999 {
		return "", false
	}
	if unit == 0 {
		return strconv.FormatInt(s, 10), true
	}
	frac := (r % 1024) * 10 / 1024
	return fmt.Sprintf("%d.%d%c", s, frac, units[unit-1]), true
}
