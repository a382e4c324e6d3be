// Package fetch opens the content sources named by manifest records.
package fetch

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Fetcher opens the content of a manifest source.
type Fetcher interface {
	// Open returns a reader for source. The caller closes it.
	Open(source string) (io.ReadCloser, error)
}

// Sizer reports the current byte count of a source without reading it.
type Sizer interface {
	Size(source string) (int64, error)
}

// Local fetches sources from a filesystem. Relative sources resolve
// against Dir; absolute sources are used as-is.
type Local struct {
	fs  afero.Fs
	dir string
}

// NewLocal returns a Local fetcher over the host filesystem rooted at dir.
// An empty dir means the working directory.
func NewLocal(dir string) *Local {
	return NewLocalFs(afero.NewOsFs(), dir)
}

// NewLocalFs returns a Local fetcher over an arbitrary afero filesystem.
func NewLocalFs(fs afero.Fs, dir string) *Local {
	return &Local{fs: fs, dir: dir}
}

// Dir returns the directory relative sources resolve against.
func (l *Local) Dir() string {
	return l.dir
}

// Resolve returns the path source refers to.
func (l *Local) Resolve(source string) string {
	if filepath.IsAbs(source) || l.dir == "" {
		return source
	}
	return filepath.Join(l.dir, source)
}

// Open implements Fetcher.
func (l *Local) Open(source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, fmt.Errorf("empty source")
	}
	f, err := l.fs.Open(l.Resolve(source))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Size returns the current size of source.
func (l *Local) Size(source string) (int64, error) {
	fi, err := l.fs.Stat(l.Resolve(source))
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s is a directory", l.Resolve(source))
	}
	return fi.Size(), nil
}

// ForManifest returns the fetcher used for a manifest read from
// manifestPath: sources resolve against the manifest's directory, or the
// working directory when the manifest comes from standard input ("" or
// "-").
func ForManifest(manifestPath string) *Local {
	if manifestPath == "" || manifestPath == "-" {
		return NewLocal("")
	}
	return NewLocal(filepath.Dir(manifestPath))
}
