package sync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/schaermu/fspec/internal/digest"
	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/manifest"
)

// apply converges the single path named by spec and returns what occupied
// it beforehand. An absent path is known not to exist yet and is not
// looked up.
func (r *run) apply(spec *manifest.FileSpec, absent bool) (liveState, error) {
	real := r.real(spec.Path)
	var (
		live liveState
		err  error
	)
	if !absent {
		if live, err = r.stat(real); err != nil {
			return live, err
		}
	}

	switch spec.Kind {
	case manifest.KindRegular:
		err = r.applyRegular(spec, real, live)
	case manifest.KindSymlink:
		err = r.applySymlink(spec, real, live)
	case manifest.KindDirectory:
		err = r.applyDirectory(spec, real, live)
	default:
		err = fmt.Errorf("%w: file '%s' kind must be declared", manifest.ErrMalformed, spec.Path)
	}
	return live, err
}

func (r *run) stat(real string) (liveState, error) {
	info, err := lstat(real)
	if errors.Is(err, fs.ErrNotExist) {
		return liveState{}, nil
	}
	if err != nil {
		return liveState{}, ioError("lstat", real, err)
	}
	return liveState{info: info}, nil
}

func (r *run) applyRegular(spec *manifest.FileSpec, real string, live liveState) error {
	want := spec.Digest
	if live.kind() == manifest.KindRegular {
		if want == nil {
			d, err := r.sourceDigest(spec)
			if err != nil {
				return err
			}
			want = &d
		}
		have, err := hashLocal(real)
		if err != nil {
			return err
		}
		if have == *want {
			return r.applyMode(spec, real, live)
		}
	}

	var (
		tmp  string
		size int64
		err  error
	)
	if r.opts.DryRun {
		size, err = r.sourceSize(spec)
	} else {
		tmp, size, err = r.fetch(spec, filepath.Dir(real), want)
	}
	if err != nil {
		return err
	}
	return r.replace(spec, real, live, tmp, size)
}

func (r *run) applySymlink(spec *manifest.FileSpec, real string, live liveState) error {
	if live.kind() == manifest.KindSymlink {
		target, err := readlink(real)
		if err != nil {
			return ioError("readlink", real, err)
		}
		if target == spec.Target {
			r.sum.Unchanged++
			return nil
		}
	}

	tmp := ""
	if !r.opts.DryRun {
		var err error
		tmp, err = r.tempSymlink(spec.Target, filepath.Dir(real))
		if err != nil {
			return err
		}
	}
	return r.replace(spec, real, live, tmp, -1)
}

func (r *run) applyDirectory(spec *manifest.FileSpec, real string, live liveState) error {
	if live.kind() == manifest.KindDirectory {
		return r.applyMode(spec, real, live)
	}
	if live.exists() {
		if err := r.removeOccupant(spec.Path, real, live, true); err != nil {
			return err
		}
	}
	if !r.opts.DryRun {
		if err := mkdir(real, spec.Mode.Perm()); err != nil {
			return ioError("mkdir", real, err)
		}
		// Mkdir is subject to the umask and drops the special bits.
		if err := chmod(real, spec.Mode); err != nil {
			return ioError("chmod", real, err)
		}
	}
	r.reporter.Created(spec.Path, specSummary(spec, -1))
	r.sum.Created++
	return nil
}

// replace moves the prepared temporary entry tmp over real. A live
// occupant of another kind is reported as deleted first; a directory
// occupant is removed with its subtree since rename cannot replace it.
// tmp is removed if anything fails.
func (r *run) replace(spec *manifest.FileSpec, real string, live liveState, tmp string, size int64) (err error) {
	if tmp != "" {
		defer func() {
			if err != nil {
				_ = remove(tmp)
			}
		}()
	}

	sameKind := live.kind() == spec.Kind
	if live.exists() && !sameKind {
		if err := r.removeOccupant(spec.Path, real, live, false); err != nil {
			return err
		}
	}
	if tmp != "" {
		if err := rename(tmp, real); err != nil {
			return ioError("rename", real, err)
		}
	}

	after := specSummary(spec, size)
	if live.exists() && sameKind {
		r.reporter.Changed(spec.Path, live.summary(), after)
		r.sum.Replaced++
	} else {
		r.reporter.Created(spec.Path, after)
		r.sum.Created++
	}
	return nil
}

// removeOccupant reports the entry at real as deleted. Directories are
// always removed with their contents; other entries only when unlink is
// set, otherwise the following rename replaces them.
func (r *run) removeOccupant(p, real string, live liveState, unlink bool) error {
	if live.kind() == manifest.KindDirectory {
		return r.deleteTree(p)
	}
	if !unlink {
		r.reporter.Deleted(p, live.summary())
		r.sum.Deleted++
		return nil
	}
	return r.removeEntry(p, real, live.info)
}

// applyMode fixes the permission bits of an entry whose content already
// matches. Symlink permissions are never touched.
func (r *run) applyMode(spec *manifest.FileSpec, real string, live liveState) error {
	if spec.Kind == manifest.KindSymlink || live.perm() == spec.Mode {
		r.sum.Unchanged++
		return nil
	}
	mode := live.info.Mode()&^permBits | spec.Mode
	r.reporter.Changed(spec.Path, live.summary(), summary(mode, live.info.Size()))
	if !r.opts.DryRun {
		if err := chmod(real, spec.Mode); err != nil {
			return ioError("chmod", real, err)
		}
	}
	r.sum.ModeChanged++
	return nil
}

// fetch copies the source of spec into a new temporary file in dir while
// hashing it, verifies the digest against want and applies the declared
// mode. It returns the temporary path and the number of bytes copied. On
// failure nothing is left behind.
func (r *run) fetch(spec *manifest.FileSpec, dir string, want *digest.Digest) (tmp string, size int64, err error) {
	r.logger.Debug("fetching file", "path", spec.Path, "source", spec.Source)

	src, err := r.fetcher.Open(spec.Source)
	if err != nil {
		return "", 0, ioError("open", spec.Source, err)
	}
	defer func() {
		_ = src.Close()
	}()

	f, err := createTemp(dir, r.opts.TempPrefix+"*")
	if err != nil {
		return "", 0, ioError("create temp file in", dir, err)
	}
	name := f.Name()
	defer func() {
		if err != nil {
			_ = remove(name)
		}
	}()

	h := digest.NewHasher()
	size, err = io.Copy(io.MultiWriter(f, h), src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, ioError("copy", spec.Source, err)
	}

	if want != nil && h.Sum() != *want {
		return "", 0, fmt.Errorf("%w: file '%s' has incorrect hash", ErrIntegrity, spec.Path)
	}
	if spec.Size >= 0 && size != spec.Size {
		if r.opts.StrictSize {
			return "", 0, fmt.Errorf("%w: file '%s' has size %d, declared %d", ErrIntegrity, spec.Path, size, spec.Size)
		}
		r.logger.Warn("fetched size differs from declared size",
			"path", spec.Path,
			"size", size,
			"declared", spec.Size)
	}

	if err = chmod(name, spec.Mode); err != nil {
		return "", 0, ioError("chmod", name, err)
	}
	return name, size, nil
}

// sourceDigest hashes the source of a record that declares no digest.
func (r *run) sourceDigest(spec *manifest.FileSpec) (digest.Digest, error) {
	src, err := r.fetcher.Open(spec.Source)
	if err != nil {
		return digest.Digest{}, ioError("open", spec.Source, err)
	}
	defer func() {
		_ = src.Close()
	}()
	d, _, err := digest.Reader(src)
	if err != nil {
		return digest.Digest{}, ioError("read", spec.Source, err)
	}
	return d, nil
}

// sourceSize predicts the byte count a fetch of spec would report. Without
// a Sizer the declared size stands in.
func (r *run) sourceSize(spec *manifest.FileSpec) (int64, error) {
	s, ok := r.fetcher.(fetch.Sizer)
	if !ok {
		return spec.Size, nil
	}
	size, err := s.Size(spec.Source)
	if err != nil {
		return 0, ioError("stat", spec.Source, err)
	}
	return size, nil
}

func hashLocal(real string) (digest.Digest, error) {
	d, err := digest.File(real)
	if err != nil {
		return digest.Digest{}, ioError("read", real, err)
	}
	return d, nil
}

// tempSymlink creates a symlink to target under a fresh hidden name in
// dir, retrying on name collisions up to the configured budget.
func (r *run) tempSymlink(target, dir string) (string, error) {
	for i := 0; i < r.opts.TempRetries; i++ {
		tmp := filepath.Join(dir, r.tempName())
		err := symlink(target, tmp)
		if err == nil {
			return tmp, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", ioError("symlink", tmp, err)
		}
	}
	return "", fmt.Errorf("%w: could not find temporary name in %s after %d attempts", ErrExhausted, dir, r.opts.TempRetries)
}
