// Package manifest reads, writes, orders and decodes fspec manifests.
//
// A manifest is a sequence of records separated by blank lines. The first
// line of a record is an absolute path; every following line is a
// key=value attribute:
//
//	/etc/motd
//	type=reg
//	mode=0644
//	size=12
//	blake3=af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262
//
// Records are kept in their raw form (Record) so tools that only rewrite
// or reorder them preserve attributes they do not understand; Decode turns
// a Record into the FileSpec consumed by the synchronizer.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed reports a manifest that cannot be applied: a bad attribute,
// an out-of-order or orphaned path, or a path that is too long.
var ErrMalformed = errors.New("malformed manifest")

// maxLineLen bounds a single manifest line.
const maxLineLen = 1 << 20

// Attr is one key=value attribute line.
type Attr struct {
	Key   string
	Value string
}

// Record is one raw manifest entry.
type Record struct {
	Path  string
	Attrs []Attr
	// Line is the 1-based input line of Path, or 0 for synthesized records.
	Line int
}

// Get returns the value of the last attribute named key.
func (r *Record) Get(key string) (string, bool) {
	for i := len(r.Attrs) - 1; i >= 0; i-- {
		if r.Attrs[i].Key == key {
			return r.Attrs[i].Value, true
		}
	}
	return "", false
}

// Set replaces the last attribute named key, or appends it.
func (r *Record) Set(key, value string) {
	for i := len(r.Attrs) - 1; i >= 0; i-- {
		if r.Attrs[i].Key == key {
			r.Attrs[i].Value = value
			return
		}
	}
	r.Attrs = append(r.Attrs, Attr{Key: key, Value: value})
}

// Reader splits a byte stream into records.
type Reader struct {
	s    *bufio.Scanner
	line int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	return &Reader{s: s}
}

// Next returns the next record, or io.EOF when the input is exhausted.
// Runs of blank lines between records are tolerated, and the final record
// may end at EOF without a terminating blank line.
func (r *Reader) Next() (*Record, error) {
	var rec *Record
	for r.s.Scan() {
		r.line++
		text := r.s.Text()
		if text == "" {
			if rec != nil {
				return rec, nil
			}
			continue
		}
		if rec == nil {
			rec = &Record{Path: text, Line: r.line}
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: attribute %q has no '='", ErrMalformed, r.line, text)
		}
		rec.Attrs = append(rec.Attrs, Attr{Key: key, Value: value})
	}
	if err := r.s.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d is too long", ErrMalformed, r.line+1)
		}
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	return nil, io.EOF
}

// Parse calls fn for every record read from r, stopping at the first error.
func Parse(r io.Reader, fn func(*Record) error) error {
	mr := NewReader(r)
	for {
		rec, err := mr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// ReadAll reads every record from r.
func ReadAll(r io.Reader) ([]*Record, error) {
	var recs []*Record
	err := Parse(r, func(rec *Record) error {
		recs = append(recs, rec)
		return nil
	})
	return recs, err
}

// Write writes rec followed by the blank line that terminates it.
func Write(w io.Writer, rec *Record) error {
	var b strings.Builder
	b.WriteString(rec.Path)
	b.WriteByte('\n')
	for _, a := range rec.Attrs {
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
