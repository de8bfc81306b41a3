package logger

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// slogAdapter implements Logger on top of a slog handler
type slogAdapter struct {
	logger *slog.Logger
}

// emit builds the record by hand so the reported source is the caller of
// Debug/Info/Warn/Error, not this wrapper
func (l *slogAdapter) emit(level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}

	// skip runtime.Callers, emit and the level method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), record)
}

func (l *slogAdapter) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args...) }
func (l *slogAdapter) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args...) }
func (l *slogAdapter) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args...) }
func (l *slogAdapter) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args...) }

// With returns a logger with additional key-value pairs
func (l *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{logger: l.logger.With(args...)}
}

// WithGroup returns a logger with attributes grouped under the given name
func (l *slogAdapter) WithGroup(name string) Logger {
	return &slogAdapter{logger: l.logger.WithGroup(name)}
}

// parseLevel maps a level name to slog.Level, unknown names log at info
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// trimSourceDir keeps only the file name in source attributes
func trimSourceDir(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}

	return a
}
