// Package logger configures the process-wide structured logger.
//
// Third-party library log lines are suppressed unless the configured level is
// debug, so a HYBRID/CLOUD-mode run doesn't drown the governance pipeline's
// own lines in provider SDK chatter.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const emberPackagePrefix = "github.com/ember-run/ember"

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Unknown values default to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

// filteringHandler wraps a slog.Handler and drops non-ember log lines unless
// the configured level is debug.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.isEmberPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) isEmberPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), emberPackagePrefix) || strings.Contains(file, "/ember/")
}

// Init sets the process-wide default slog logger.
func Init(level slog.Level, output *os.File) {
	base := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	defaultLogger = slog.New(&filteringHandler{handler: base, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// Get returns the process-wide logger, initializing a sane default (info
// level, stderr) if Init has not been called yet.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr)
	}
	return defaultLogger
}
