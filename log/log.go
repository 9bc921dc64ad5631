// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package log adapts go-ethereum's structured logger (itself a thin
// convenience layer over Go's log/slog since go-ethereum migrated off its
// original log15 fork): a Logger interface with Trace/Debug/Info/
// Warn/Error/Crit methods taking alternating key-value pairs, backed by a
// terminal handler (colorized when the output is a TTY, grounded on
// go-ethereum's own `log.NewTerminalHandler`) or a plain JSON handler for
// production log shipping.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level mirrors slog's level constants under go-ethereum's own names.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = slog.Level(12)
)

// Logger is the logging interface used throughout the module, grounded on
// go-ethereum's log.Logger: every level method takes a message followed by
// alternating key/value pairs.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{}) // Crit also terminates the process, matching go-ethereum.

	// With returns a Logger that always includes ctx in every record,
	// go-ethereum's convention for attaching a subsystem name or request id.
	With(ctx ...interface{}) Logger

	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// New builds a Logger bound to the current root handler, pre-populated with
// ctx, mirroring go-ethereum's log.New(ctx...).
func New(ctx ...interface{}) Logger {
	return &logger{inner: root.inner.With(ctx...)}
}

func (l *logger) log(level slog.Level, msg string, ctx []interface{}) {
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.log(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.log(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.log(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.log(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.log(LevelError, msg, ctx) }

// Crit logs at the critical level and then exits the process, matching
// go-ethereum's log.Crit ("the application cannot continue").
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.log(LevelCrit, msg, ctx)
	os.Exit(1)
}

func (l *logger) With(ctx ...interface{}) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) Handler() slog.Handler { return l.inner.Handler() }

var root = &logger{inner: slog.New(NewTerminalHandler(os.Stderr, defaultUseColor(os.Stderr)))}

// Root returns the root logger, the base every log.New(ctx...) call derives
// from.
func Root() Logger { return root }

// NewWithHandler builds a standalone Logger over h, the hook a cmd/coreeth
// entrypoint uses to hand SetDefault a JSON-handler-backed root.
func NewWithHandler(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

// SetDefault replaces the root logger's handler, the hook a cmd/coreeth
// entrypoint uses to switch to a JSON handler for production deployments.
func SetDefault(l Logger) {
	if lg, ok := l.(*logger); ok {
		root = lg
	}
}

func defaultUseColor(w io.Writer) bool {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Package-level convenience wrappers, dispatching to Root() exactly like
// go-ethereum's top-level log.Info/log.Error/etc.
func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }

// levelName renders a slog.Level using go-ethereum's own short level names
// rather than slog's default "INFO+4"-style formatting for custom levels.
func levelName(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT"
	default:
		return level.String()
	}
}

var levelColor = map[slog.Level]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgBlue),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgHiRed, color.Bold),
}

// terminalHandler formats records the way go-ethereum's console handler
// does: "LVL [time] msg key=value ...", colorized when useColor is set
// (selected by the caller via isatty, matching go-ethereum's own
// auto-detection using mattn/go-isatty and emitting through
// mattn/go-colorable so Windows terminals still render the escapes).
type terminalHandler struct {
	w        io.Writer
	useColor bool
	attrs    []slog.Attr
}

// NewTerminalHandler builds a human-readable slog.Handler; when useColor is
// true the output is wrapped in github.com/mattn/go-colorable so ANSI
// escapes render on Windows consoles too, exactly as go-ethereum's own
// terminal handler does.
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	if f, ok := w.(*os.File); ok && useColor {
		w = colorable.NewColorable(f)
	}
	return &terminalHandler{w: w, useColor: useColor}
}

func (h *terminalHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	name := levelName(r.Level)
	if h.useColor {
		if c, ok := levelColor[r.Level]; ok {
			name = c.Sprint(name)
		}
	}
	fmt.Fprintf(h.w, "%-5s[%s] %s", name, r.Time.Format("01-02|15:04:05.000"), r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(h.w, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.w)
	return nil
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &terminalHandler{w: h.w, useColor: h.useColor, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *terminalHandler) WithGroup(name string) slog.Handler { return h }

// NewJSONHandler builds a handler writing one JSON object per record, for
// the production/structured-log-shipping deployment case (spec §4.0
// ambient stack "JSON handlers").
func NewJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: LevelTrace})
}
