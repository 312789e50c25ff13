// Package logging builds the process logger.
//
// Records go through log/slog. Console output is rendered by
// charmbracelet/log; JSON output uses the slog JSON handler. When a log file
// is configured it is rotated by lumberjack and always receives JSON.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	maxFileSizeMB = 10
	maxBackups    = 3
	maxAgeDays    = 28
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Format is "text" or "json". Empty means text.
	Format string

	// File, when set, receives JSON records in addition to Writer.
	File string

	// Writer is the console destination. Nil means os.Stderr.
	Writer io.Writer

	// NoColor disables ANSI styling of text output.
	NoColor bool
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger and a close function that flushes the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var console slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		console = consoleHandler(w, level, opts.NoColor)
	case "json":
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	file := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})
	return slog.New(fanout{console, file}), rotator.Close, nil
}

func consoleHandler(w io.Writer, level slog.Level, noColor bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Level:           fromSlog(level),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	if noColor {
		l.SetColorProfile(termenv.Ascii)
	}
	return l
}

func fromSlog(level slog.Level) log.Level {
	switch {
	case level <= slog.LevelDebug:
		return log.DebugLevel
	case level <= slog.LevelInfo:
		return log.InfoLevel
	case level <= slog.LevelWarn:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
