//go:build integration

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/fspec/internal/testutil"
)

const defaultTimeout = 5 * time.Minute

var binaries = []string{"fspec-sync", "fspec-sum", "fspec-sort", "fspec-tar"}

// Harness builds the fspec binaries once and runs them as subprocesses
type Harness struct {
	t      *testing.T
	binDir string
	env    []string
}

// NewHarness creates a new test harness with an isolated config directory
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return &Harness{
		t:      t,
		binDir: t.TempDir(),
		env:    append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir()),
	}
}

// Build compiles every command into the harness bin directory
func (h *Harness) Build(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := testutil.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	for _, name := range binaries {
		h.t.Logf("Building %s", name)
		cmd := exec.CommandContext(ctx, "go", "build",
			"-o", filepath.Join(h.binDir, name),
			"./cmd/"+name,
		)
		cmd.Dir = projectRoot
		cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
		cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("go build %s: %w", name, err)
		}
	}
	return nil
}

// Run executes one of the built commands in dir and returns stdout,
// stderr and the exit code
func (h *Harness) Run(ctx context.Context, dir string, stdin io.Reader, name string, args ...string) (string, string, int, error) {
	h.t.Helper()

	cmd := exec.CommandContext(ctx, filepath.Join(h.binDir, name), args...)
	cmd.Dir = dir
	cmd.Env = h.env
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			err = nil
		}
	}
	return stdout.String(), stderr.String(), exitCode, err
}

// MustRun executes a command and fails the test on a non-zero exit
func (h *Harness) MustRun(ctx context.Context, dir string, stdin io.Reader, name string, args ...string) string {
	h.t.Helper()

	stdout, stderr, code, err := h.Run(ctx, dir, stdin, name, args...)
	if err != nil {
		h.t.Fatalf("%s %s: %v", name, strings.Join(args, " "), err)
	}
	if code != 0 {
		h.t.Fatalf("%s %s exited %d\nstderr: %s", name, strings.Join(args, " "), code, stderr)
	}
	return stdout
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)
