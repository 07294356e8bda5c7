// Package manifest reads add-in manifests: YAML, TOML or CUE files that declare
// the worksheet functions of an add-in together with its settings.
//
//	name: math
//	encoding: windows-1252
//	log:
//	  level: debug
//	functions:
//	  - name: ADD
//	    procedure: xAdd
//	    signature: QQQ$
//	    category: Math
//	    args:
//	      - {name: a, help: first addend}
//	      - {name: b, help: second addend}
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	xlllog "github.com/reglet-dev/reglet-xll/log"
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
)

// Format is the syntax of a manifest file.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))
	}
}

// Manifest describes an add-in.
type Manifest struct {
	Name        string `json:"name" yaml:"name" toml:"name" validate:"required,max=64"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	// Category is the default category of functions that declare none.
	Category string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty" validate:"max=255"`
	// Encoding names the code page of narrow text, e.g. "windows-1252".
	// Empty means the process code page.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty" toml:"encoding,omitempty" validate:"omitempty,encoding"`
	// MaxBufferBytes caps the memory of live plugin buffers. Zero keeps the
	// default.
	MaxBufferBytes int        `json:"max_buffer_bytes,omitempty" yaml:"max_buffer_bytes,omitempty" toml:"max_buffer_bytes,omitempty" validate:"min=0"`
	Log            Log        `json:"log,omitempty" yaml:"log,omitempty" toml:"log,omitempty"`
	Functions      []Function `json:"functions" yaml:"functions" toml:"functions" validate:"required,min=1,dive"`
}

// Log configures the add-in logger.
type Log struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	File   string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	Source bool   `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty" validate:"omitempty,oneof=json cbor" jsonschema:"enum=json,enum=cbor"`
}

// Function declares one worksheet function.
type Function struct {
	Name string `json:"name" yaml:"name" toml:"name" validate:"required,max=255"`
	// Procedure is the exported symbol. Defaults to Name.
	Procedure string `json:"procedure,omitempty" yaml:"procedure,omitempty" toml:"procedure,omitempty" validate:"max=255"`
	Signature string `json:"signature" yaml:"signature" toml:"signature" validate:"required,xlsig"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty" validate:"omitempty,oneof=function command hidden" jsonschema:"enum=function,enum=command,enum=hidden"`
	Category  string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty" validate:"max=255"`
	Shortcut  string `json:"shortcut,omitempty" yaml:"shortcut,omitempty" toml:"shortcut,omitempty" validate:"max=1"`
	Topic     string `json:"topic,omitempty" yaml:"topic,omitempty" toml:"topic,omitempty" validate:"max=255"`
	Help      string `json:"help,omitempty" yaml:"help,omitempty" toml:"help,omitempty" validate:"max=255"`
	// Handler names the Go handler bound to the function. Defaults to
	// Procedure.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty" toml:"handler,omitempty"`
	Args    []Arg  `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty" validate:"max=245,dive"`
}

// Arg documents one argument.
type Arg struct {
	Name string `json:"name" yaml:"name" toml:"name" validate:"required,max=255"`
	Help string `json:"help,omitempty" yaml:"help,omitempty" toml:"help,omitempty" validate:"max=255"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format, opts ...ParseOption) (*Manifest, error) {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.vars != nil {
		rendered, err := render(data, cfg.vars, cfg.strict)
		if err != nil {
			return nil, err
		}
		data = rendered
	}

	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML manifest: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML manifest: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse TOML manifest: unknown key %q", undecoded[0].String())
		}
	case FormatCUE:
		raw, err := cueJSON(data)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to parse CUE manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// cueJSON evaluates a CUE document and exports it as JSON. Every field must be
// concrete.
func cueJSON(data []byte) ([]byte, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename("manifest.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE manifest: %w", err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate CUE manifest: %w", err)
	}
	return raw, nil
}

// Load reads the manifest at path; the format follows the extension.
func Load(path string, opts ...ParseOption) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, format, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Definition converts f into registration metadata; category fills in an
// empty Category.
func (f Function) Definition(category string) udf.Definition {
	def := udf.Definition{
		Procedure: f.Procedure,
		Signature: f.Signature,
		Name:      f.Name,
		MacroType: udf.MacroFunction,
		Category:  f.Category,
		Shortcut:  f.Shortcut,
		Topic:     f.Topic,
		Help:      f.Help,
	}
	if def.Procedure == "" {
		def.Procedure = f.Name
	}
	if def.Category == "" {
		def.Category = category
	}
	switch f.Type {
	case "command":
		def.MacroType = udf.MacroCommand
	case "hidden":
		def.MacroType = udf.MacroHidden
	}

	names := make([]string, len(f.Args))
	for i, a := range f.Args {
		names[i] = a.Name
	}
	def.ArgNames = strings.Join(names, ",")
	for _, a := range f.Args {
		def.ArgHelp = append(def.ArgHelp, a.Help)
	}
	return def
}

// HandlerName returns the handler the function binds to.
func (f Function) HandlerName() string {
	switch {
	case f.Handler != "":
		return f.Handler
	case f.Procedure != "":
		return f.Procedure
	default:
		return f.Name
	}
}

// Definitions returns the registration metadata of every function.
func (m *Manifest) Definitions() []udf.Definition {
	defs := make([]udf.Definition, len(m.Functions))
	for i, f := range m.Functions {
		defs[i] = f.Definition(m.Category)
	}
	return defs
}

// Bind pairs every function with its handler and returns the registry
// options. Missing handlers are reported together.
func (m *Manifest) Bind(handlers map[string]udf.Handler) ([]udf.Option, error) {
	var missing []string
	opts := make([]udf.Option, 0, len(m.Functions))
	for _, f := range m.Functions {
		h, ok := handlers[f.HandlerName()]
		if !ok {
			missing = append(missing, f.HandlerName())
			continue
		}
		opts = append(opts, udf.WithFunction(f.Definition(m.Category), h))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("manifest %q: no handler for %s", m.Name, strings.Join(missing, ", "))
	}
	return opts, nil
}

// TextEncoding returns the configured code page, or the process code page.
func (m *Manifest) TextEncoding() (encoding.Encoding, error) {
	if m.Encoding == "" {
		return oper.SystemEncoding(), nil
	}
	return oper.EncodingByName(m.Encoding)
}

// ApplyLimits configures the plugin allocator from the manifest.
func (m *Manifest) ApplyLimits() {
	if m.MaxBufferBytes > 0 {
		abi.Configure(abi.WithMaxTotalAllocations(m.MaxBufferBytes))
	}
}

// NewLogger builds the logger l describes. Records are appended to File when
// it is set and written to fallback otherwise; the returned closer releases
// the file and is a no-op for fallback.
func (l Log) NewLogger(fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if l.Level != "" {
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	format := xlllog.FormatJSON
	if l.Format == "cbor" {
		format = xlllog.FormatCBOR
	}

	w, closer := fallback, io.Closer(nopCloser{})
	if l.File != "" {
		f, err := os.OpenFile(l.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	logger := xlllog.New(
		xlllog.WithWriter(w),
		xlllog.WithLevel(level),
		xlllog.WithSource(l.Source),
		xlllog.WithFormat(format),
	)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
