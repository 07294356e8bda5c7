// Package log provides a structured logging (slog) handler for add-ins. The
// host gives add-ins no console, so records are written as JSON lines, or as a
// CBOR sequence, to a file or any other writer.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Format is the encoding of written records.
type Format int

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = iota
	// FormatCBOR writes a CBOR sequence (RFC 8742) of canonical records.
	FormatCBOR
)

var cborEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Handler implements slog.Handler, writing one encoded object per record.
type Handler struct {
	opts   handlerConfig
	mu     *sync.Mutex
	attrs  []AttrWire
	groups []string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	writer    io.Writer
	level     slog.Leveler
	addSource bool
	format    Format
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		writer: os.Stderr,
		level:  slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report. A *slog.LevelVar may be
// passed to change the level at run time.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithWriter sets the destination. The default is os.Stderr.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		if w != nil {
			c.writer = w
		}
	}
}

// WithFormat selects the record encoding. The default is FormatJSON.
func WithFormat(f Format) HandlerOption {
	return func(c *handlerConfig) {
		c.format = f
	}
}

// NewHandler creates a new Handler with the given options.
func NewHandler(opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{opts: cfg, mu: &sync.Mutex{}}
}

// New returns a logger backed by a new Handler.
func New(opts ...HandlerOption) *slog.Logger {
	return slog.New(NewHandler(opts...))
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle encodes and writes the record.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	msg := RecordWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = &SourceWire{Function: f.Function, File: f.File, Line: f.Line}
	}

	msg.Attrs = append(msg.Attrs, h.attrs...)
	prefix := h.prefix()
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = appendAttr(msg.Attrs, prefix, attr)
		return true
	})

	data, err := h.encode(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.opts.writer.Write(data)
	return err
}

func (h *Handler) encode(msg RecordWire) ([]byte, error) {
	if h.opts.format == FormatCBOR {
		return cborEncMode.Marshal(msg)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WithAttrs returns a new Handler that includes the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := h.clone()
	prefix := h.prefix()
	for _, a := range attrs {
		nh.attrs = appendAttr(nh.attrs, prefix, a)
	}
	return nh
}

// WithGroup returns a new Handler that qualifies later attribute keys with
// name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *Handler) clone() *Handler {
	nh := *h
	nh.attrs = append([]AttrWire(nil), h.attrs...)
	nh.groups = append([]string(nil), h.groups...)
	return &nh
}

func (h *Handler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// appendAttr flattens groups into dotted keys and drops empty attributes.
func appendAttr(dst []AttrWire, prefix string, attr slog.Attr) []AttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, ga := range attr.Value.Group() {
			dst = appendAttr(dst, prefix, ga)
		}
		return dst
	}
	wire := toAttrWire(attr)
	wire.Key = prefix + wire.Key
	return append(dst, wire)
}
