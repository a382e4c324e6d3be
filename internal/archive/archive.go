// Package archive renders a manifest as a ustar stream.
package archive

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/manifest"
)

// maxID is the largest uid or gid a ustar header can hold.
const maxID = 0o7777777

// Source opens manifest sources and reports their size up front, since a
// tar header precedes the content it describes.
type Source interface {
	fetch.Fetcher
	fetch.Sizer
}

// Writer turns manifests into tar archives.
type Writer struct {
	src    Source
	logger *slog.Logger
}

// New returns a Writer reading file content from src.
func New(src Source, logger *slog.Logger) *Writer {
	return &Writer{src: src, logger: logger}
}

// Run writes one ustar entry per record of the manifest read from r,
// followed by the end-of-archive marker. Entries carry a zero mtime so
// identical manifests produce identical archives.
func (w *Writer) Run(r io.Reader, out io.Writer) error {
	bw := bufio.NewWriter(out)
	tw := tar.NewWriter(bw)
	entries := 0
	err := manifest.Parse(r, func(rec *manifest.Record) error {
		if err := w.writeEntry(tw, rec); err != nil {
			return err
		}
		entries++
		return nil
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	w.logger.Debug("archive written", "entries", entries)
	return nil
}

func (w *Writer) writeEntry(tw *tar.Writer, rec *manifest.Record) error {
	spec, err := manifest.Decode(rec)
	if err != nil {
		return err
	}
	hdr, err := header(rec, spec)
	if err != nil {
		return err
	}

	var content io.ReadCloser
	if spec.Kind == manifest.KindRegular {
		if hdr.Size, err = w.src.Size(spec.Source); err != nil {
			return fmt.Errorf("stat %s: %w", spec.Source, err)
		}
		if content, err = w.src.Open(spec.Source); err != nil {
			return fmt.Errorf("open %s: %w", spec.Source, err)
		}
		defer func() {
			_ = content.Close()
		}()
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("file '%s': %w", spec.Path, err)
	}
	if content == nil {
		return nil
	}

	n, err := io.CopyN(tw, content, hdr.Size)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("file '%s' changed size when reading: got %d of %d bytes", spec.Source, n, hdr.Size)
	}
	if err != nil {
		return fmt.Errorf("copy %s: %w", spec.Source, err)
	}
	var extra [1]byte
	if m, _ := content.Read(extra[:]); m > 0 {
		return fmt.Errorf("file '%s' changed size when reading: more than %d bytes", spec.Source, hdr.Size)
	}
	return nil
}

// header builds the ustar header for spec. Names are relative to the
// archive root; directories carry a trailing slash.
func header(rec *manifest.Record, spec *manifest.FileSpec) (*tar.Header, error) {
	hdr := &tar.Header{
		Name:   entryName(spec),
		Mode:   modeBits(spec.Mode),
		Format: tar.FormatUSTAR,
	}
	switch spec.Kind {
	case manifest.KindRegular:
		hdr.Typeflag = tar.TypeReg
	case manifest.KindSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = spec.Target
	case manifest.KindDirectory:
		hdr.Typeflag = tar.TypeDir
	}

	var err error
	if hdr.Uid, err = id(rec, manifest.AttrUID); err != nil {
		return nil, err
	}
	if hdr.Gid, err = id(rec, manifest.AttrGID); err != nil {
		return nil, err
	}
	return hdr, nil
}

func entryName(spec *manifest.FileSpec) string {
	if spec.Path == "/" {
		return "./"
	}
	name := strings.TrimPrefix(spec.Path, "/")
	if spec.Kind == manifest.KindDirectory {
		name += "/"
	}
	return name
}

func id(rec *manifest.Record, key string) (int, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n > maxID {
		return 0, fmt.Errorf("%w: file '%s' has invalid %s '%s'", manifest.ErrMalformed, rec.Path, key, v)
	}
	return int(n), nil
}

// modeBits converts to the octal c_ISUID/c_ISGID/c_ISVTX layout of a tar
// header.
func modeBits(m fs.FileMode) int64 {
	bits := int64(m.Perm())
	if m&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}
