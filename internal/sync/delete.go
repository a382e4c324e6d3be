package sync

import (
	"fmt"
	"io/fs"

	"github.com/schaermu/fspec/internal/manifest"
)

// deleteTree removes the entry at manifest path p. Directories are walked
// depth-first with an explicit stack; each entry is reported before it is
// removed and children always precede their directory.
func (r *run) deleteTree(p string) error {
	real, info, err := r.lstatForDelete(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return r.removeEntry(p, real, info)
	}

	type level struct {
		*frame
		info fs.FileInfo
	}
	f, err := listFrame(p, real)
	if err != nil {
		return err
	}
	stack := []level{{frame: f, info: info}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		name, ok := top.next()
		if !ok {
			dir, dirInfo := top.dir, top.info
			stack = stack[:len(stack)-1]
			if err := r.removeEntry(dir, r.real(dir), dirInfo); err != nil {
				return err
			}
			continue
		}

		child := manifest.Child(top.dir, name)
		creal, cinfo, err := r.lstatForDelete(child)
		if err != nil {
			return err
		}
		if !cinfo.IsDir() {
			if err := r.removeEntry(child, creal, cinfo); err != nil {
				return err
			}
			continue
		}
		f, err := listFrame(child, creal)
		if err != nil {
			return err
		}
		stack = append(stack, level{frame: f, info: cinfo})
	}
	return nil
}

func (r *run) lstatForDelete(p string) (string, fs.FileInfo, error) {
	real := r.real(p)
	if len(real) > r.opts.MaxPathLen {
		return "", nil, fmt.Errorf("%w: path is too long: %s", ErrExhausted, real)
	}
	info, err := lstat(real)
	if err != nil {
		return "", nil, ioError("lstat", real, err)
	}
	return real, info, nil
}

// removeEntry reports and removes a single non-directory entry or an
// already emptied directory.
func (r *run) removeEntry(p, real string, info fs.FileInfo) error {
	r.reporter.Deleted(p, summary(info.Mode(), info.Size()))
	r.sum.Deleted++
	if r.opts.DryRun {
		return nil
	}
	if err := remove(real); err != nil {
		return ioError("remove", real, err)
	}
	return nil
}
