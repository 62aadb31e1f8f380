package dset

import (
	"log/slog"
	"os"

	"github.com/hupe1980/dset/dtype"
)

// Logger wraps slog.Logger with dataset-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithHandle adds a handle field to the logger (useful for tagging every
// operation against one dataset).
func (l *Logger) WithHandle(h Handle) *Logger {
	return &Logger{
		Logger: l.Logger.With("handle", uint64(h)),
	}
}

// WithColumn adds a column key field to the logger.
func (l *Logger) WithColumn(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", key),
	}
}

// LogAddRows logs a row growth operation.
func (l *Logger) LogAddRows(h Handle, num uint64, err error) {
	if err != nil {
		l.Error("addrows failed",
			"handle", uint64(h),
			"num", num,
			"error", err,
		)
	} else {
		l.Debug("addrows completed",
			"handle", uint64(h),
			"num", num,
		)
	}
}

// LogAddColumn logs a column creation.
func (l *Logger) LogAddColumn(h Handle, key string, t dtype.T, err error) {
	if err != nil {
		l.Error("addcol failed",
			"handle", uint64(h),
			"column", key,
			"type", t.String(),
			"error", err,
		)
	} else {
		l.Debug("addcol completed",
			"handle", uint64(h),
			"column", key,
			"type", t.String(),
		)
	}
}

// LogCopy logs a deep copy operation.
func (l *Logger) LogCopy(src, dst Handle, err error) {
	if err != nil {
		l.Error("copy failed",
			"handle", uint64(src),
			"error", err,
		)
	} else {
		l.Debug("copy completed",
			"handle", uint64(src),
			"copy", uint64(dst),
		)
	}
}

// LogDelete logs a dataset deletion.
func (l *Logger) LogDelete(h Handle, err error) {
	if err != nil {
		l.Error("delete failed",
			"handle", uint64(h),
			"error", err,
		)
	} else {
		l.Debug("delete completed",
			"handle", uint64(h),
		)
	}
}

// LogDefrag logs a compaction run.
func (l *Logger) LogDefrag(h Handle, shrink bool, reclaimed int64, err error) {
	if err != nil {
		l.Error("defrag failed",
			"handle", uint64(h),
			"shrink", shrink,
			"error", err,
		)
	} else {
		l.Info("defrag completed",
			"handle", uint64(h),
			"shrink", shrink,
			"reclaimed_bytes", reclaimed,
		)
	}
}
