// Package logging sets up slog output to stdout and a size-capped log file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger owns the log file and the dynamic level.
type Logger struct {
	*slog.Logger
	path     string
	file     *os.File
	levelVar *slog.LevelVar
}

// New creates a logger that writes to stdout and, if path is set, to path.
// The standard log package is redirected to the same writer so tgbotapi
// output lands in the file too. Initial level is INFO.
func New(path string) (*Logger, error) {
	var out io.Writer = os.Stdout
	var file *os.File

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime)

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: levelVar,
	})

	return &Logger{
		Logger:   slog.New(handler),
		path:     path,
		file:     file,
		levelVar: levelVar,
	}, nil
}

// SetLevel accepts debug, info, warn or error. Anything else means info.
func (l *Logger) SetLevel(level string) {
	parsed, valid := parseLevel(level)
	if !valid && level != "" {
		l.Warn("Unknown log level, using info", "value", level)
	}
	l.levelVar.Set(parsed)
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// TruncateIfNeeded empties the file at path once it grows past maxSize.
func TruncateIfNeeded(path string, maxSize int64) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.Size() <= maxSize {
		return false
	}
	if err := os.Truncate(path, 0); err != nil {
		slog.Warn("Failed to truncate log file", "path", path, "error", err)
		return false
	}
	slog.Info("Truncated log file", "path", path, "prev_size", info.Size())
	return true
}

// StartRotation checks the log file size every interval until ctx is done.
func (l *Logger) StartRotation(ctx context.Context, maxSize int64, interval time.Duration) {
	if l.path == "" {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				TruncateIfNeeded(l.path, maxSize)
			}
		}
	}()
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
