package logcapture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nosey/internal/logging"
)

// buffer holds the formatted records of the running test.
type buffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *buffer) add(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

func (b *buffer) truncate() {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
}

func (b *buffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// filter decides by logger name. A name matches an entry when it equals
// it or is one of its dotted children.
type filter struct {
	include []string
	exclude []string
}

func newFilter(spec string) filter {
	var f filter
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
		case strings.HasPrefix(name, "-"):
			f.exclude = append(f.exclude, name[1:])
		default:
			f.include = append(f.include, name)
		}
	}
	return f
}

func under(name, parent string) bool {
	return name == parent || strings.HasPrefix(name, parent+".")
}

func (f filter) allows(name string) bool {
	for _, e := range f.exclude {
		if under(name, e) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, i := range f.include {
		if under(name, i) {
			return true
		}
	}
	return false
}

// handler formats records into a buffer and optionally passes them on.
type handler struct {
	buf     *buffer
	level   slog.Leveler
	format  string
	filter  filter
	forward slog.Handler

	logger string
	attrs  []slog.Attr
	group  string
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level.Level() {
		return true
	}
	return h.forward != nil && h.forward.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	logger := h.logger
	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == logging.Key && h.group == "" {
			logger = a.Value.String()
			return true
		}
		attrs = append(attrs, h.qualify(a))
		return true
	})
	if logger == "" {
		logger = "root"
	}
	if r.Level >= h.level.Level() && h.filter.allows(logger) {
		h.buf.add(h.render(r, logger, attrs))
	}
	if h.forward != nil && h.forward.Enabled(ctx, r.Level) {
		return h.forward.Handle(ctx, r)
	}
	return nil
}

func (h *handler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

func (h *handler) render(r slog.Record, logger string, attrs []slog.Attr) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
	}
	line := strings.NewReplacer(
		"{time}", r.Time.Format(time.TimeOnly),
		"{level}", r.Level.String(),
		"{logger}", logger,
		"{message}", r.Message,
		"{attrs}", strings.Join(parts, " "),
	).Replace(h.format)
	return strings.TrimRight(line, " ")
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		if a.Key == logging.Key && h.group == "" {
			c.logger = a.Value.String()
			continue
		}
		c.attrs = append(c.attrs, h.qualify(a))
	}
	if h.forward != nil {
		c.forward = h.forward.WithAttrs(attrs)
	}
	return c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	if h.forward != nil {
		c.forward = h.forward.WithGroup(name)
	}
	return c
}

func (h *handler) clone() *handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}
