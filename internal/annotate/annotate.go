// Package annotate adds BLAKE3 digests to the regular-file records of a
// manifest and optionally verifies the digests already present.
package annotate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/schaermu/fspec/internal/digest"
	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/manifest"
)

// ErrMismatch is wrapped by MismatchError.
var ErrMismatch = errors.New("digest check failed")

// MismatchError describes a record whose declared digest does not match
// its source.
type MismatchError struct {
	Path     string
	Source   string
	Expected string
	Got      digest.Digest
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: path=%s source=%s expected=%s got=%s",
		ErrMismatch, e.Path, e.Source, e.Expected, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// Annotator copies manifests, appending a blake3= attribute to every
// regular-file record that lacks one.
type Annotator struct {
	fetcher fetch.Fetcher
	check   bool
	logger  *slog.Logger
}

// New returns an Annotator reading sources through fetcher. With check
// set, records that already carry a digest are re-hashed and verified.
func New(fetcher fetch.Fetcher, check bool, logger *slog.Logger) *Annotator {
	return &Annotator{fetcher: fetcher, check: check, logger: logger}
}

// Run copies the manifest from r to w. Records are passed through
// unchanged apart from the appended digest; they are neither decoded nor
// reordered.
func (a *Annotator) Run(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	hashed := 0
	err := manifest.Parse(r, func(rec *manifest.Record) error {
		did, err := a.annotate(rec)
		if err != nil {
			return err
		}
		if did {
			hashed++
		}
		return manifest.Write(bw, rec)
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	a.logger.Debug("manifest annotated", "hashed", hashed)
	return nil
}

func (a *Annotator) annotate(rec *manifest.Record) (bool, error) {
	if typ, _ := rec.Get(manifest.AttrType); typ != manifest.KindRegular.String() {
		return false, nil
	}
	declared, has := rec.Get(manifest.AttrBlake3)
	if has && !a.check {
		return false, nil
	}

	source, ok := rec.Get(manifest.AttrSource)
	if !ok {
		source = rec.Path[1:]
	}
	sum, err := a.hash(source)
	if err != nil {
		return false, err
	}

	if has {
		want, err := digest.Parse(declared)
		if err != nil {
			return false, fmt.Errorf("%w: file '%s': %w", manifest.ErrMalformed, rec.Path, err)
		}
		if want != sum {
			return false, &MismatchError{Path: rec.Path, Source: source, Expected: declared, Got: sum}
		}
		return true, nil
	}
	rec.Attrs = append(rec.Attrs, manifest.Attr{Key: manifest.AttrBlake3, Value: sum.String()})
	return true, nil
}

func (a *Annotator) hash(source string) (digest.Digest, error) {
	f, err := a.fetcher.Open(source)
	if err != nil {
		return digest.Digest{}, fmt.Errorf("open %s: %w", source, err)
	}
	defer func() {
		_ = f.Close()
	}()
	sum, _, err := digest.Reader(f)
	if err != nil {
		return digest.Digest{}, fmt.Errorf("read %s: %w", source, err)
	}
	return sum, nil
}
