// Package wasmudf exposes the numeric exports of a WebAssembly module as
// worksheet functions.
package wasmudf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
)

// DefaultCategory is the function category used unless WithCategory is given.
const DefaultCategory = "WebAssembly"

// Option configures Load.
type Option func(*config)

type config struct {
	category    string
	prefix      string
	memoryPages uint32
	logger      *slog.Logger
}

// WithCategory sets the category of the generated definitions.
func WithCategory(c string) Option {
	return func(cfg *config) {
		cfg.category = c
	}
}

// WithPrefix prepends prefix to every worksheet name, e.g. "WASM.".
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

// WithMemoryLimitPages caps the linear memory of the module in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(cfg *config) {
		cfg.memoryPages = pages
	}
}

// WithLogger sets the logger for traps. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// Module is an instantiated WebAssembly module. Calls into it are serialised.
type Module struct {
	runtime wazero.Runtime
	module  api.Module
	funcs   []*export
	byName  map[string]*export
	cfg     config

	mu sync.Mutex
}

type export struct {
	name    string
	params  []api.ValueType
	result  api.ValueType
	argName []string
	fn      api.Function
}

// Load compiles and instantiates wasmBytes. Exported functions whose
// parameters are numeric and which return exactly one numeric value become
// worksheet functions; other exports are ignored.
func Load(ctx context.Context, wasmBytes []byte, opts ...Option) (*Module, error) {
	cfg := config{category: DefaultCategory}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	rtCfg := wazero.NewRuntimeConfig()
	if cfg.memoryPages > 0 {
		rtCfg = rtCfg.WithMemoryLimitPages(cfg.memoryPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	m := &Module{
		runtime: rt,
		module:  mod,
		byName:  make(map[string]*export),
		cfg:     cfg,
	}
	for name, def := range compiled.ExportedFunctions() {
		if strings.HasPrefix(name, "_") || !numeric(def) {
			continue
		}
		e := &export{
			name:    name,
			params:  def.ParamTypes(),
			result:  def.ResultTypes()[0],
			argName: argNames(def),
			fn:      mod.ExportedFunction(name),
		}
		m.funcs = append(m.funcs, e)
		m.byName[name] = e
	}
	sort.Slice(m.funcs, func(i, j int) bool { return m.funcs[i].name < m.funcs[j].name })
	return m, nil
}

func numeric(def api.FunctionDefinition) bool {
	if len(def.ResultTypes()) != 1 || !isNumeric(def.ResultTypes()[0]) {
		return false
	}
	// The host accepts at most 255 arguments.
	if len(def.ParamTypes()) > 255 {
		return false
	}
	for _, t := range def.ParamTypes() {
		if !isNumeric(t) {
			return false
		}
	}
	return true
}

func isNumeric(t api.ValueType) bool {
	switch t {
	case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		return true
	}
	return false
}

func argNames(def api.FunctionDefinition) []string {
	names := def.ParamNames()
	out := make([]string, len(def.ParamTypes()))
	for i := range out {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = fmt.Sprintf("x%d", i+1)
		}
	}
	return out
}

// Close releases the runtime and the module.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

// Exports returns the names of the exposed exports in order.
func (m *Module) Exports() []string {
	names := make([]string, len(m.funcs))
	for i, e := range m.funcs {
		names[i] = e.name
	}
	return names
}

// Definitions returns registration metadata for every exposed export.
func (m *Module) Definitions() []udf.Definition {
	defs := make([]udf.Definition, len(m.funcs))
	for i, e := range m.funcs {
		defs[i] = m.definition(e)
	}
	return defs
}

func (m *Module) definition(e *export) udf.Definition {
	return udf.Definition{
		Procedure: e.name,
		Name:      m.cfg.prefix + e.name,
		Signature: strings.Repeat("Q", 1+len(e.params)),
		ArgNames:  strings.Join(e.argName, ","),
		MacroType: udf.MacroFunction,
		Category:  m.cfg.category,
		Help:      fmt.Sprintf("Calls the WebAssembly export %q", e.name),
	}
}

// Options returns registry options registering every exposed export.
func (m *Module) Options() []udf.Option {
	opts := make([]udf.Option, len(m.funcs))
	for i, e := range m.funcs {
		opts[i] = udf.WithFunction(m.definition(e), m.handler(e))
	}
	return opts
}

// Handler returns the handler of the export name.
func (m *Module) Handler(name string) (udf.Handler, bool) {
	e, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.handler(e), true
}

func (m *Module) handler(e *export) udf.Handler {
	return func(ctx context.Context, args []*oper.Value) *oper.Value {
		if len(args) != len(e.params) {
			return oper.Error(oper.ErrValue)
		}
		stack := make([]uint64, len(args))
		for i, a := range args {
			if code, ok := a.ErrCode(); ok {
				return oper.Error(code)
			}
			f := 0.0
			if !a.IsMissing() && !a.IsNil() {
				var ok bool
				if f, ok = a.Float(); !ok {
					return oper.Error(oper.ErrValue)
				}
			}
			v, ok := encode(e.params[i], f)
			if !ok {
				return oper.Error(oper.ErrNum)
			}
			stack[i] = v
		}

		m.mu.Lock()
		results, err := e.fn.Call(ctx, stack...)
		m.mu.Unlock()
		if err != nil {
			m.cfg.logger.WarnContext(ctx, "wasm export trapped", "export", e.name, "error", err)
			return oper.Error(oper.ErrValue)
		}
		return decode(e.result, results[0])
	}
}

// encode converts a worksheet number to a wasm value. Integer parameters
// reject fractions and values out of range.
func encode(t api.ValueType, f float64) (uint64, bool) {
	switch t {
	case api.ValueTypeI32:
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, false
		}
		return api.EncodeI32(int32(f)), true
	case api.ValueTypeI64:
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return api.EncodeI64(int64(f)), true
	case api.ValueTypeF32:
		return api.EncodeF32(float32(f)), true
	default:
		return api.EncodeF64(f), true
	}
}

func decode(t api.ValueType, v uint64) *oper.Value {
	var f float64
	switch t {
	case api.ValueTypeI32:
		return oper.Int(api.DecodeI32(v))
	case api.ValueTypeI64:
		f = float64(int64(v))
	case api.ValueTypeF32:
		f = float64(api.DecodeF32(v))
	default:
		f = api.DecodeF64(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return oper.Error(oper.ErrNum)
	}
	return oper.Number(f)
}
