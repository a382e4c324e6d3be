package manifest

import (
	"slices"
	"strings"
)

// Sort orders records by Compare. Records with equal paths keep their
// input order.
func Sort(recs []*Record) {
	slices.SortStableFunc(recs, func(a, b *Record) int {
		return Compare(a.Path, b.Path)
	})
}

// SynthesizeParents returns sorted records with a type=dir, mode=0755
// record inserted for every ancestor directory that is not declared before
// its first descendant.
func SynthesizeParents(sorted []*Record) []*Record {
	out := make([]*Record, 0, len(sorted))
	prev := ""
	for _, rec := range sorted {
		for _, dir := range ancestors(rec.Path) {
			if dir == prev || IsAncestor(dir, prev) {
				continue
			}
			out = append(out, &Record{
				Path: dir,
				Attrs: []Attr{
					{Key: AttrType, Value: "dir"},
					{Key: AttrMode, Value: "0755"},
				},
			})
			prev = dir
		}
		out = append(out, rec)
		prev = rec.Path
	}
	return out
}

// ancestors lists the proper ancestors of p from the root down.
func ancestors(p string) []string {
	if p == "/" || !strings.HasPrefix(p, "/") {
		return nil
	}
	dirs := []string{"/"}
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			dirs = append(dirs, p[:i])
		}
	}
	return dirs
}
