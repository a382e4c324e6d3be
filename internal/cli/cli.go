// Package cli holds the flag, logging and configuration plumbing shared by
// the fspec commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/schaermu/fspec/internal/config"
)

var (
	// Set by goreleaser
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// GlobalFlags are the flags every command accepts.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

// Register adds the global flags to fs.
func (g *GlobalFlags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&g.ConfigFile, "config", "", "config file (default is $XDG_CONFIG_HOME/fspec/config.yaml)")
	fs.StringVar(&g.LogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&g.LogFormat, "log-format", config.DefaultLogFormat, "log format (text, json)")
}

// Setup loads the configuration and builds the logger. Log flags given on
// the command line override the config file. Diagnostics go to stderr so
// stdout stays reserved for command output.
func (g *GlobalFlags) Setup(fs *pflag.FlagSet, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, path, err := g.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if fs.Changed("log-level") {
		level = g.LogLevel
	}
	if fs.Changed("log-format") {
		format = g.LogFormat
	}
	logger := NewLogger(level, format, stderr)

	logger.Debug("configuration loaded",
		"path", path,
		"temp_retries", cfg.Sync.TempRetries,
		"max_path_len", cfg.Sync.MaxPathLen,
		"strict_size", cfg.Sync.StrictSize)

	return cfg, logger, nil
}

// loadConfig reads the explicit --config file, which must exist, or the
// default file, which may be absent.
func (g *GlobalFlags) loadConfig() (*config.Config, string, error) {
	if g.ConfigFile != "" {
		cfg, err := config.Load(g.ConfigFile)
		return cfg, g.ConfigFile, err
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default(), "", nil
	}
	cfg, err := config.LoadOrDefault(path)
	return cfg, path, err
}

// NewLogger returns a slog logger writing to w. Unknown levels fall back
// to info and unknown formats to text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	// Parse log level
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// OpenInput opens the named manifest, or returns stdin for "" and "-".
func OpenInput(name string, stdin io.Reader) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// SetVersion enables --version on cmd, printing build information.
func SetVersion(cmd *cobra.Command) {
	cmd.Version = Version
	cmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}}\n  commit: %s\n  built:  %s\n", Commit, Date))
}
