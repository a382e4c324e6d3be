// Package sync converges a directory tree to the state described by a
// sorted manifest.
//
// The engine walks the manifest and the live tree in lockstep. Live
// entries that sort before the next manifest path have no counterpart and
// are deleted; an entry equal to it is compared and, if needed, replaced
// through a temporary file or symlink renamed over the final path, so no
// entry is ever observed half-written.
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schaermu/fspec/internal/config"
	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/manifest"
)

// Options tunes a run.
type Options struct {
	// DryRun suppresses every mutating call while still hashing,
	// traversing and reporting.
	DryRun bool
	// TempRetries bounds the attempts to find a free temporary symlink name.
	TempRetries int
	// MaxPathLen is the longest root-joined path accepted.
	MaxPathLen int
	// StrictSize fails a fetch whose byte count differs from the declared
	// size instead of logging a warning.
	StrictSize bool
	// TempPrefix prefixes temporary regular files.
	TempPrefix string
}

// OptionsFromConfig returns the Options described by cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DryRun:      cfg.Sync.DryRun,
		TempRetries: cfg.Sync.TempRetries,
		MaxPathLen:  cfg.Sync.MaxPathLen,
		StrictSize:  cfg.Sync.StrictSize,
		TempPrefix:  cfg.Sync.TempPrefix,
	}
}

// Engine orchestrates the sync process
type Engine struct {
	root     string
	fetcher  fetch.Fetcher
	reporter *Reporter
	logger   *slog.Logger
	opts     Options
	tempName func() string
}

// NewEngine creates a new sync engine converging root. Change lines are
// written to out.
func NewEngine(root string, fetcher fetch.Fetcher, out io.Writer, logger *slog.Logger, opts Options) *Engine {
	def := OptionsFromConfig(config.Default())
	if opts.TempRetries <= 0 {
		opts.TempRetries = def.TempRetries
	}
	if opts.MaxPathLen <= 0 {
		opts.MaxPathLen = def.MaxPathLen
	}
	if opts.TempPrefix == "" {
		opts.TempPrefix = def.TempPrefix
	}
	return &Engine{
		root:     root,
		fetcher:  fetcher,
		reporter: NewReporter(out),
		logger:   logger,
		opts:     opts,
		tempName: randomTempName,
	}
}

// Run reads the manifest from r and converges the tree. The whole manifest
// is validated before the first mutation, so a malformed manifest leaves
// the tree untouched. ctx is only consulted between records: an entry that
// has started is always finished.
func (e *Engine) Run(ctx context.Context, r io.Reader) (*Summary, error) {
	e.logger.Info("starting sync",
		"root", e.root,
		"dry_run", e.opts.DryRun)

	src, cleanup, err := rewindable(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	start, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioError("seek", "manifest", err)
	}

	records, err := e.validate(src)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("manifest validated", "records", records)

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, ioError("seek", "manifest", err)
	}

	run := &run{Engine: e, ctx: ctx}
	err = manifest.Parse(src, func(rec *manifest.Record) error {
		spec, err := manifest.Decode(rec)
		if err != nil {
			return err
		}
		return run.step(spec)
	})
	if err == nil {
		err = run.finish()
	}
	if err == nil {
		if werr := e.reporter.Err(); werr != nil {
			err = ioError("write", "report", werr)
		}
	}
	if err != nil {
		return &run.sum, err
	}

	e.logger.Info("sync completed",
		"created", run.sum.Created,
		"replaced", run.sum.Replaced,
		"mode_changed", run.sum.ModeChanged,
		"deleted", run.sum.Deleted,
		"unchanged", run.sum.Unchanged)
	return &run.sum, nil
}

// validate decodes and order-checks every record without touching the
// filesystem.
func (e *Engine) validate(r io.Reader) (int, error) {
	var checker manifest.Checker
	n := 0
	err := manifest.Parse(r, func(rec *manifest.Record) error {
		spec, err := manifest.Decode(rec)
		if err != nil {
			return err
		}
		if err := checker.Check(spec); err != nil {
			return err
		}
		if len(e.real(spec.Path)) > e.opts.MaxPathLen {
			return fmt.Errorf("%w: path is too long: %s", manifest.ErrMalformed, spec.Path)
		}
		n++
		return nil
	})
	return n, err
}

// real maps a manifest path onto the filesystem.
func (e *Engine) real(p string) string {
	return filepath.Join(e.root, p)
}

// rewindable returns a seekable view of r. Seekable inputs are used
// directly; anything else (a pipe on stdin) is spooled to an unlinked
// temporary file so memory stays bounded.
func rewindable(r io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekCurrent); err == nil {
			return rs, func() {}, nil
		}
	}

	f, err := os.CreateTemp("", "fspec-manifest-*")
	if err != nil {
		return nil, nil, ioError("create", "manifest spool", err)
	}
	_ = os.Remove(f.Name())
	cleanup := func() {
		_ = f.Close()
	}
	if _, err := io.Copy(f, r); err != nil {
		cleanup()
		return nil, nil, ioError("read", "manifest", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, ioError("seek", "manifest spool", err)
	}
	return f, cleanup, nil
}

// run is the state of one pass over the manifest.
type run struct {
	*Engine
	ctx     context.Context
	stack   cursor
	checker manifest.Checker
	sum     Summary
}

// step merges one manifest entry with the live tree.
func (r *run) step(spec *manifest.FileSpec) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if err := r.checker.Check(spec); err != nil {
		return err
	}

	// Frames of directories the manifest has left can no longer match
	// anything.
	for f := r.stack.top(); f != nil && !manifest.IsAncestor(f.dir, spec.Path); f = r.stack.top() {
		if err := r.drain(f); err != nil {
			return err
		}
		r.stack.pop()
	}

	parent := r.stack.top()
	absent := parent != nil && parent.absent
	if parent != nil {
		for {
			name, ok := parent.peek()
			if !ok {
				break
			}
			lp := manifest.Child(parent.dir, name)
			c := manifest.Compare(lp, spec.Path)
			if c > 0 {
				break
			}
			parent.advance()
			if c == 0 {
				break
			}
			if err := r.deleteTree(lp); err != nil {
				return err
			}
		}
	}

	live, err := r.apply(spec, absent)
	if err != nil {
		return err
	}

	if spec.Kind == manifest.KindDirectory {
		// In a dry run a directory that would be created has no
		// contents to merge, and whatever occupies its path now must
		// not be looked through.
		if r.opts.DryRun && (absent || live.kind() != manifest.KindDirectory) {
			r.stack.push(&frame{dir: spec.Path, absent: true})
			return nil
		}
		f, err := listFrame(spec.Path, r.real(spec.Path))
		if err != nil {
			return err
		}
		r.stack.push(f)
	}
	return nil
}

// finish deletes every live entry left in open frames once the manifest
// is exhausted.
func (r *run) finish() error {
	for r.stack.depth() > 0 {
		if err := r.drain(r.stack.top()); err != nil {
			return err
		}
		r.stack.pop()
	}
	return nil
}

// drain deletes the unconsumed entries of f.
func (r *run) drain(f *frame) error {
	for name, ok := f.next(); ok; name, ok = f.next() {
		if err := r.deleteTree(manifest.Child(f.dir, name)); err != nil {
			return err
		}
	}
	return nil
}
