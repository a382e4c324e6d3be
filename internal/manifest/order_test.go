package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want int
	}{
		{a: "/", b: "/", want: 0},
		{a: "", b: "/", want: -1},
		{a: "/", b: "/a", want: -1},
		{a: "/a", b: "/a/b", want: -1},
		{a: "/a/b", b: "/a-b", want: -1},
		{a: "/a/z", b: "/a.b", want: -1},
		{a: "/ab", b: "/a/b", want: 1},
		{a: "/a", b: "/b", want: -1},
		{a: "/b", b: "/a/zzz", want: 1},
		{a: "/a\xc3\xa9", b: "/az", want: 1},
	} {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, Compare(tc.a, tc.b))
			assert.Equal(t, -tc.want, Compare(tc.b, tc.a))
		})
	}
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, IsAncestor("/", "/a"))
	assert.True(t, IsAncestor("/a", "/a/b/c"))
	assert.False(t, IsAncestor("/a", "/a"))
	assert.False(t, IsAncestor("/a", "/ab"))
	assert.False(t, IsAncestor("/", "/"))
	assert.False(t, IsAncestor("/a/b", "/a"))
}

func TestParentAndChild(t *testing.T) {
	assert.Equal(t, "", Parent("/"))
	assert.Equal(t, "/", Parent("/a"))
	assert.Equal(t, "/a/b", Parent("/a/b/c"))
	assert.Equal(t, "/a", Child("/", "a"))
	assert.Equal(t, "/a/b", Child("/a", "b"))
}

func TestValidatePath(t *testing.T) {
	for _, p := range []string{"/", "/a", "/a/b.c", "/.hidden/x"} {
		assert.NoError(t, ValidatePath(p), p)
	}
	for _, p := range []string{"", "a", "/a/", "//a", "/a//b", "/./a", "/a/..", "/a\x00b"} {
		assert.Error(t, ValidatePath(p), p)
	}
}

func specs(t *testing.T, paths ...string) []*FileSpec {
	t.Helper()
	var out []*FileSpec
	for _, p := range paths {
		kind := KindRegular
		if p == "/" || p[len(p)-1] == '*' {
			kind = KindDirectory
			if p != "/" {
				p = p[:len(p)-1]
			}
		}
		out = append(out, &FileSpec{Path: p, Kind: kind})
	}
	return out
}

func runChecker(t *testing.T, paths ...string) error {
	t.Helper()
	var c Checker
	for _, s := range specs(t, paths...) {
		if err := c.Check(s); err != nil {
			return err
		}
	}
	return nil
}

func TestCheckerAcceptsSortedTree(t *testing.T) {
	// A trailing '*' marks a directory.
	require.NoError(t, runChecker(t, "/", "/a*", "/a/b", "/a/c*", "/a/c/d", "/a-b", "/b"))
}

func TestCheckerAcceptsTopLevelWithoutRoot(t *testing.T) {
	require.NoError(t, runChecker(t, "/a", "/b*", "/b/c"))
}

func TestCheckerRejectsUnsorted(t *testing.T) {
	err := runChecker(t, "/", "/b", "/a")
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "not sorted at /a")
}

func TestCheckerRejectsDuplicate(t *testing.T) {
	err := runChecker(t, "/", "/a", "/a")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckerRejectsOrphan(t *testing.T) {
	for _, tc := range []struct {
		name  string
		paths []string
		want  string
	}{
		{name: "undeclared parent", paths: []string{"/", "/x/y"}, want: "missing directory /x"},
		{name: "parent is a file", paths: []string{"/", "/a", "/a/b"}, want: "missing directory /a"},
		{name: "deep gap", paths: []string{"/", "/a*", "/a/b/c/d"}, want: "missing directory /a/b"},
		{name: "left directory", paths: []string{"/", "/a*", "/a/b", "/c/d"}, want: "missing directory /c"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := runChecker(t, tc.paths...)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCheckerRootMustBeDirectory(t *testing.T) {
	var c Checker
	err := c.Check(&FileSpec{Path: "/", Kind: KindRegular})
	assert.ErrorIs(t, err, ErrMalformed)
}
