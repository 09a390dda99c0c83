package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Key constants for structured log fields.
const (
	KeyComponent = "component"
	KeyPID       = "pid"
	KeyName      = "name"
	KeyError     = "error"
)

// handlerBox keeps the stored type constant whatever handler Init picks.
type handlerBox struct {
	h slog.Handler
}

// step is one WithGroup or WithAttrs call, replayed in order.
type step struct {
	group string
	attrs []slog.Attr
}

type derived struct {
	base *handlerBox
	h    slog.Handler
}

// switchableHandler lets package-level loggers created before Init pick up
// the configured handler once Init runs.
type switchableHandler struct {
	current *atomic.Pointer[handlerBox]
	steps   []step
	cache   atomic.Pointer[derived]
}

func (h *switchableHandler) materialize() slog.Handler {
	box := h.current.Load()
	if d := h.cache.Load(); d != nil && d.base == box {
		return d.h
	}
	handler := box.h
	for _, s := range h.steps {
		if s.group != "" {
			handler = handler.WithGroup(s.group)
		} else {
			handler = handler.WithAttrs(s.attrs)
		}
	}
	h.cache.Store(&derived{base: box, h: handler})
	return handler
}

func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.materialize().Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.materialize().Handle(ctx, record)
}

func (h *switchableHandler) with(s step) *switchableHandler {
	steps := make([]step, 0, len(h.steps)+1)
	steps = append(steps, h.steps...)
	steps = append(steps, s)
	return &switchableHandler{current: h.current, steps: steps}
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(step{attrs: append([]slog.Attr(nil), attrs...)})
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(step{group: name})
}

var (
	current     = newCurrent(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rootHandler = &switchableHandler{current: current}
)

func newCurrent(h slog.Handler) *atomic.Pointer[handlerBox] {
	p := &atomic.Pointer[handlerBox]{}
	p.Store(&handlerBox{h: h})
	return p
}

func init() {
	slog.SetDefault(slog.New(rootHandler))
}

// Init configures the global handler. It may be called again to switch
// format or level; loggers created earlier follow the switch.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// output: writer to log to (nil = os.Stderr)
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	current.Store(&handlerBox{h: handler})
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return slog.New(rootHandler).With(KeyComponent, component)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
