// Package logger provides the slog handler used for the tracer's own diagnostics and by the
// structured-logger trace sink.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	initialBufferCapacity = 256

	// FilePermissions is used for log files created by NewFileHandler.
	FilePermissions = 0o600
)

// Handler writes records as "2006-01-02T15:04:05.000-07:00 LEVEL msg key=value".
type Handler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer, level Level) *Handler {
	return &Handler{
		mu:     &sync.Mutex{},
		writer: w,
		level:  level.ToSlogLevel(),
	}
}

// NewFileHandler creates a Handler appending to the file at path.
func NewFileHandler(path string, level Level) (*Handler, error) {
	//nolint:gosec // path comes from the user's own configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FilePermissions)
	if err != nil {
		return nil, err
	}
	return NewHandler(f, level), nil
}

// New returns a logger backed by a Handler writing to w.
func New(w io.Writer, level Level) *slog.Logger {
	return slog.New(NewHandler(w, level))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(NewHandler(io.Discard, LevelOff))
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, initialBufferCapacity)
	buf = append(buf, r.Time.Local().Format("2006-01-02T15:04:05.000-07:00")...)
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		buf = appendAttr(buf, "", a)
	}
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf)
	return err
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	val := a.Value.Resolve().String()
	if strings.ContainsAny(val, " \t\n\"") {
		buf = append(buf, quote(val)...)
	} else {
		buf = append(buf, val...)
	}
	return buf
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// WithAttrs returns a handler that adds attrs to every record. Keys are qualified by the groups
// open at this point.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	prefix := h.groupPrefix()
	for _, a := range attrs {
		a.Key = prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Close closes the underlying writer if it can be closed.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if closer, ok := h.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
