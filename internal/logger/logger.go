package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// L is the global logger instance. It discards all output until Init is
// called.
var L *slog.Logger = slog.New(slog.DiscardHandler)

const logSuffix = ".log"

var file *os.File

// Options configures the logger initialization.
type Options struct {
	Dir     string     // Directory for the log file. No file is written if empty.
	Name    string     // Log file name without the extension.
	Level   slog.Level // Minimum log level.
	Console io.Writer  // Optional second sink, usually os.Stderr.
}

// Init configures logging. The log file is truncated, so it only ever holds
// the output of the current process.
func Init(opts Options) error {
	if err := Close(); err != nil {
		return err
	}

	var sinks []io.Writer
	if opts.Dir != "" {
		if opts.Name == "" {
			return errors.New("log file name is required")
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}

		f, err := os.Create(filepath.Join(opts.Dir, opts.Name+logSuffix))
		if err != nil {
			return err
		}
		file = f
		sinks = append(sinks, f)
	}
	if opts.Console != nil {
		sinks = append(sinks, opts.Console)
	}

	if len(sinks) == 0 {
		L = slog.New(slog.DiscardHandler)
		return nil
	}

	L = slog.New(slog.NewTextHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: dropTime,
	}))
	return nil
}

// Path returns the path of the current log file, or "" if there is none.
func Path() string {
	if file == nil {
		return ""
	}
	return file.Name()
}

// Close closes the log file and resets L to discard output.
func Close() error {
	L = slog.New(slog.DiscardHandler)
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
