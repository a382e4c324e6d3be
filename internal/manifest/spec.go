package manifest

import (
	"fmt"
	"io/fs"
	"strconv"

	"github.com/schaermu/fspec/internal/digest"
)

// Kind is the declared type of a manifest entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindRegular
	KindSymlink
	KindDirectory
)

// String returns the manifest spelling of k.
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "reg"
	case KindSymlink:
		return "sym"
	case KindDirectory:
		return "dir"
	}
	return "unknown"
}

// ParseKind parses a type= attribute value.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "reg":
		return KindRegular, true
	case "sym":
		return KindSymlink, true
	case "dir":
		return KindDirectory, true
	}
	return KindUnknown, false
}

// DefaultMode returns the permission bits assumed when a record has no
// mode= attribute.
func (k Kind) DefaultMode() fs.FileMode {
	switch k {
	case KindSymlink:
		return 0o777
	case KindDirectory:
		return 0o755
	}
	return 0o644
}

// Attribute keys understood by the tools.
const (
	AttrType   = "type"
	AttrMode   = "mode"
	AttrSize   = "size"
	AttrSource = "source"
	AttrTarget = "target"
	AttrBlake3 = "blake3"
	AttrUID    = "uid"
	AttrGID    = "gid"
)

// FileSpec is a decoded manifest record.
type FileSpec struct {
	Path string
	Kind Kind
	// Mode holds the permission bits plus ModeSetuid, ModeSetgid and
	// ModeSticky.
	Mode fs.FileMode
	// Size is the declared byte count of a regular file, or -1 when the
	// record has none. It is informational only.
	Size   int64
	Source string
	Target string
	// Digest is nil when the record carries no blake3= attribute.
	Digest *digest.Digest
}

// Decode turns a raw record into a FileSpec. Every failure wraps
// ErrMalformed.
func Decode(rec *Record) (*FileSpec, error) {
	if err := ValidatePath(rec.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	spec := &FileSpec{
		Path:   rec.Path,
		Size:   -1,
		Source: rec.Path[1:],
	}

	hasMode, hasTarget := false, false
	for _, a := range rec.Attrs {
		switch a.Key {
		case AttrType:
			k, ok := ParseKind(a.Value)
			if !ok {
				return nil, malformed(rec.Path, "has unsupported type '%s'", a.Value)
			}
			spec.Kind = k
		case AttrMode:
			m, err := ParseMode(a.Value)
			if err != nil {
				return nil, malformed(rec.Path, "has unsupported mode '%s'", a.Value)
			}
			spec.Mode, hasMode = m, true
		case AttrSize:
			n, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil || n < 0 {
				return nil, malformed(rec.Path, "has unsupported size '%s'", a.Value)
			}
			spec.Size = n
		case AttrSource:
			spec.Source = a.Value
		case AttrTarget:
			spec.Target, hasTarget = a.Value, true
		case AttrBlake3:
			d, err := digest.Parse(a.Value)
			if err != nil {
				return nil, malformed(rec.Path, "has invalid blake3 attribute: %v", err)
			}
			spec.Digest = &d
		}
	}

	if spec.Kind == KindUnknown {
		return nil, malformed(rec.Path, "kind must be declared")
	}
	if spec.Kind == KindSymlink && (!hasTarget || spec.Target == "") {
		return nil, malformed(rec.Path, "is a symlink without a target")
	}
	if !hasMode {
		spec.Mode = spec.Kind.DefaultMode()
	}
	return spec, nil
}

// ParseMode parses octal permission digits, including the setuid, setgid
// and sticky bits, into an fs.FileMode.
func ParseMode(s string) (fs.FileMode, error) {
	if s == "" {
		return 0, fmt.Errorf("empty mode")
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	if n > 0o7777 {
		return 0, fmt.Errorf("mode %s out of range", s)
	}
	m := fs.FileMode(n & 0o777)
	if n&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if n&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if n&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m, nil
}

// FormatMode is the inverse of ParseMode.
func FormatMode(m fs.FileMode) string {
	n := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		n |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		n |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		n |= 0o1000
	}
	return fmt.Sprintf("%04o", n)
}

func malformed(path, format string, args ...any) error {
	return fmt.Errorf("%w: file '%s' %s", ErrMalformed, path, fmt.Sprintf(format, args...))
}
