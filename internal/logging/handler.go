package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ANSI color codes.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// TimeLayout is the console timestamp, e.g. [19.10.2026 14:05].
const TimeLayout = "[02.01.2006 15:04]"

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Level slog.Level
	Color bool
}

// Handler is a compact one-line-per-record console handler.
type Handler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Level
	color  bool
	attrs  []slog.Attr
	prefix string // group prefix for attr keys
}

// NewHandler creates a console handler.
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	return &Handler{
		w:     w,
		mu:    &sync.Mutex{},
		level: opts.Level,
		color: opts.Color,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	ts := r.Time.Format(TimeLayout)
	lvl := levelLabel(r.Level)
	if h.color {
		fmt.Fprintf(&sb, "%s%s%s %s %s", ansiGray, ts, ansiReset, colorLevel(r.Level, lvl), r.Message)
	} else {
		fmt.Fprintf(&sb, "%s %s %s", ts, lvl, r.Message)
	}

	for _, a := range h.attrs {
		h.writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	for _, a := range attrs {
		combined = append(combined, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, color: h.color, attrs: combined, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, color: h.color, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (h *Handler) writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(sb, group, ga)
		}
		return
	}

	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") || val == "" {
		val = fmt.Sprintf("%q", val)
	}
	if h.color {
		fmt.Fprintf(sb, " %s%s%s=%s", ansiGray, prefix+a.Key, ansiReset, val)
	} else {
		fmt.Fprintf(sb, " %s=%s", prefix+a.Key, val)
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func colorLevel(level slog.Level, label string) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed + label + ansiReset
	case level >= slog.LevelWarn:
		return ansiYellow + label + ansiReset
	case level >= slog.LevelInfo:
		return ansiCyan + label + ansiReset
	default:
		return ansiGray + label + ansiReset
	}
}
