package sync

import (
	"io/fs"

	"github.com/schaermu/fspec/internal/manifest"
)

// Summary counts what a run did (or, in dry-run mode, would do).
type Summary struct {
	Created     int
	Replaced    int
	ModeChanged int
	Deleted     int
	Unchanged   int
}

// Changes returns the number of reported lines.
func (s Summary) Changes() int {
	return s.Created + s.Replaced + s.ModeChanged + s.Deleted
}

// permBits are the bits a manifest mode controls.
const permBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// liveState is whatever currently occupies a path; info is nil when the
// path is absent.
type liveState struct {
	info fs.FileInfo
}

func (l liveState) exists() bool {
	return l.info != nil
}

func (l liveState) kind() manifest.Kind {
	if l.info == nil {
		return manifest.KindUnknown
	}
	switch m := l.info.Mode(); {
	case m.IsRegular():
		return manifest.KindRegular
	case m&fs.ModeSymlink != 0:
		return manifest.KindSymlink
	case m.IsDir():
		return manifest.KindDirectory
	}
	return manifest.KindUnknown
}

func (l liveState) perm() fs.FileMode {
	return l.info.Mode() & permBits
}

func (l liveState) summary() string {
	return summary(l.info.Mode(), l.info.Size())
}

// typeBits maps a manifest kind to the fs.FileMode type bits.
func typeBits(k manifest.Kind) fs.FileMode {
	switch k {
	case manifest.KindDirectory:
		return fs.ModeDir
	case manifest.KindSymlink:
		return fs.ModeSymlink
	}
	return 0
}

// specSummary renders the state spec declares, with the given size.
func specSummary(spec *manifest.FileSpec, size int64) string {
	return summary(typeBits(spec.Kind)|spec.Mode, size)
}
