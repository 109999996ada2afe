// Package logging builds the slog loggers used by the CLI and the TUI.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wesm/emailsearch/internal/fileutil"
)

// Config holds logging configuration.
type Config struct {
	Level      string    // debug, info, warn, error
	FilePath   string    // log file; empty = Writer only
	MaxSizeMB  int       // rotate after this many megabytes
	MaxBackups int       // rotated files to keep
	Writer     io.Writer // used when FilePath is empty; defaults to os.Stderr
}

// New builds a text-handler logger for cfg. The returned close function
// releases the log file and must be called on shutdown.
func New(cfg Config) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	if cfg.FilePath == "" {
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewTextHandler(w, opts)), func() error { return nil }, nil
	}

	if err := fileutil.SecureMkdirAll(filepath.Dir(cfg.FilePath), 0700); err != nil {
		return nil, nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}
	return slog.New(slog.NewTextHandler(lj, opts)), lj.Close, nil
}

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
