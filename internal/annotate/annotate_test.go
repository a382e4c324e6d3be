package annotate

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/fspec/internal/digest"
	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/manifest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func memFetcher(t *testing.T, files map[string]string) fetch.Fetcher {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/src/"+name, []byte(content), 0o644))
	}
	return fetch.NewLocalFs(fs, "/src")
}

func TestRunAppendsMissingDigests(t *testing.T) {
	f := memFetcher(t, map[string]string{
		"etc/motd":    "hello",
		"build/shell": "sh",
	})
	in := "/etc\ntype=dir\n\n" +
		"/etc/motd\ntype=reg\nmode=0644\n\n" +
		"/bin/sh\ntype=reg\nsource=build/shell\n\n" +
		"/bin/ash\ntype=sym\ntarget=sh\n\n"

	var out bytes.Buffer
	require.NoError(t, New(f, false, testLogger()).Run(strings.NewReader(in), &out))

	want := "/etc\ntype=dir\n\n" +
		"/etc/motd\ntype=reg\nmode=0644\nblake3=" + digest.Bytes([]byte("hello")).String() + "\n\n" +
		"/bin/sh\ntype=reg\nsource=build/shell\nblake3=" + digest.Bytes([]byte("sh")).String() + "\n\n" +
		"/bin/ash\ntype=sym\ntarget=sh\n\n"
	assert.Equal(t, want, out.String())
}

func TestRunKeepsExistingDigestWithoutCheck(t *testing.T) {
	// The source does not exist: an existing digest must not be recomputed.
	f := memFetcher(t, nil)
	in := "/a\ntype=reg\nblake3=" + strings.Repeat("0", 64) + "\n\n"

	var out bytes.Buffer
	require.NoError(t, New(f, false, testLogger()).Run(strings.NewReader(in), &out))
	assert.Equal(t, in, out.String())
}

func TestRunCheckVerifiesDigests(t *testing.T) {
	f := memFetcher(t, map[string]string{"a": "content"})
	good := "/a\ntype=reg\nblake3=" + digest.Bytes([]byte("content")).String() + "\n\n"

	var out bytes.Buffer
	require.NoError(t, New(f, true, testLogger()).Run(strings.NewReader(good), &out))
	assert.Equal(t, good, out.String())

	bad := "/a\ntype=reg\nblake3=" + digest.Bytes([]byte("other")).String() + "\n\n"
	err := New(f, true, testLogger()).Run(strings.NewReader(bad), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrMismatch)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "/a", mismatch.Path)
	assert.Equal(t, "a", mismatch.Source)
	assert.Equal(t, digest.Bytes([]byte("content")), mismatch.Got)
}

func TestRunCheckAcceptsUppercaseDigest(t *testing.T) {
	f := memFetcher(t, map[string]string{"a": "content"})
	in := "/a\ntype=reg\nblake3=" + strings.ToUpper(digest.Bytes([]byte("content")).String()) + "\n\n"

	var out bytes.Buffer
	require.NoError(t, New(f, true, testLogger()).Run(strings.NewReader(in), &out))
	assert.Equal(t, in, out.String())
}

func TestRunCheckRejectsMalformedDigest(t *testing.T) {
	f := memFetcher(t, map[string]string{"a": "content"})
	in := "/a\ntype=reg\nblake3=xyz\n\n"

	err := New(f, true, testLogger()).Run(strings.NewReader(in), &bytes.Buffer{})
	require.ErrorIs(t, err, manifest.ErrMalformed)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestRunMissingSource(t *testing.T) {
	f := memFetcher(t, nil)
	err := New(f, false, testLogger()).Run(strings.NewReader("/missing\ntype=reg\n\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open missing")
}
