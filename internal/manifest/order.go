package manifest

import (
	"fmt"
	"path"
	"strings"
)

// Compare orders two manifest paths. Bytes are compared after the common
// prefix; the end of a path sorts below any remaining byte and '/' sorts
// below every other byte. A directory therefore precedes all of its
// descendants, and "/a/b" precedes "/a-b".
func Compare(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	switch {
	case i == len(a) && i == len(b):
		return 0
	case i == len(a):
		return -1
	case i == len(b):
		return 1
	}
	ca, cb := int(a[i]), int(b[i])
	if ca == '/' {
		ca = -1
	}
	if cb == '/' {
		cb = -1
	}
	if ca < cb {
		return -1
	}
	return 1
}

// IsAncestor reports whether dir is a proper ancestor of p.
func IsAncestor(dir, p string) bool {
	if dir == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	return len(p) > len(dir) && p[len(dir)] == '/' && strings.HasPrefix(p, dir)
}

// Parent returns the parent directory of an absolute manifest path. The
// parent of "/" is "".
func Parent(p string) string {
	if p == "/" {
		return ""
	}
	return path.Dir(p)
}

// Child joins a directory path and an entry name.
func Child(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// ValidatePath checks that p is an absolute, clean manifest path.
func ValidatePath(p string) error {
	if p == "/" {
		return nil
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path %q is not absolute", p)
	}
	if strings.IndexByte(p, 0) >= 0 {
		return fmt.Errorf("path %q contains a NUL byte", p)
	}
	for _, seg := range strings.Split(p[1:], "/") {
		switch seg {
		case "":
			return fmt.Errorf("path %q has an empty segment", p)
		case ".", "..":
			return fmt.Errorf("path %q has a %q segment", p, seg)
		}
	}
	return nil
}

// Checker enforces the ordering rules of a manifest stream: paths
// must be strictly ascending under Compare, and every path other than a
// top-level one must follow a record declaring its parent directory. The
// root "/" need not be declared; when it is, it must be a directory.
//
// Memory is bounded by the depth of the current path.
type Checker struct {
	prev string
	dirs []string
}

// Check validates the next spec in stream order.
func (c *Checker) Check(spec *FileSpec) error {
	p := spec.Path
	if Compare(c.prev, p) >= 0 {
		return fmt.Errorf("%w: not sorted at %s", ErrMalformed, p)
	}
	c.prev = p

	for len(c.dirs) > 0 && !IsAncestor(c.dirs[len(c.dirs)-1], p) {
		c.dirs = c.dirs[:len(c.dirs)-1]
	}

	if p == "/" {
		if spec.Kind != KindDirectory {
			return fmt.Errorf("%w: root must be a directory, got type %s", ErrMalformed, spec.Kind)
		}
	} else {
		top := "/"
		if len(c.dirs) > 0 {
			top = c.dirs[len(c.dirs)-1]
		}
		if parent := Parent(p); parent != top {
			return fmt.Errorf("%w: missing directory %s", ErrMalformed, missingDir(top, p))
		}
	}

	if spec.Kind == KindDirectory {
		c.dirs = append(c.dirs, p)
	}
	return nil
}

// missingDir returns the ancestor of p one level below top.
func missingDir(top, p string) string {
	rest := strings.TrimPrefix(p[len(top):], "/")
	seg, _, _ := strings.Cut(rest, "/")
	return Child(top, seg)
}
