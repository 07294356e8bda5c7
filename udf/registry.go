package udf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/reglet-dev/reglet-xll/oper"
)

// Registry is an immutable collection of worksheet functions. Once created
// via NewRegistry, functions cannot be added or removed, so lookups need no
// locks.
type Registry struct {
	funcs map[string]entry
	names []string // sorted worksheet names
}

type entry struct {
	def     Definition
	handler Handler
}

type registryBuilder struct {
	funcs      map[string]entry
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable Registry with the given options. Function
// names are compared case-insensitively, like the host does; registering a
// name twice is an error.
//
// Example usage:
//
//	registry, err := udf.NewRegistry(
//	    udf.WithMiddleware(udf.PanicRecoveryMiddleware(logger)),
//	    udf.WithFunction(udf.Definition{Procedure: "Add", Signature: "QQQ"}, add),
//	)
func NewRegistry(opts ...Option) (*Registry, error) {
	b := &registryBuilder{
		funcs: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.funcs))
	wrapped := make(map[string]entry, len(b.funcs))
	for key, e := range b.funcs {
		names = append(names, e.def.WorksheetName())
		h := e.handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[key] = entry{def: e.def, handler: h}
	}
	sort.Strings(names)

	return &Registry{
		funcs: wrapped,
		names: names,
	}, nil
}

// Invoke calls the function registered under name. Unknown names yield
// #NAME?. The result is owned by the caller and is never nil.
func (r *Registry) Invoke(ctx context.Context, name string, args []*oper.Value) *oper.Value {
	e, ok := r.funcs[key(name)]
	if !ok {
		return oper.Error(oper.ErrName)
	}
	res := e.handler(CallContextFrom(ctx, e.def), args)
	if res == nil {
		return oper.Nil()
	}
	return res
}

// Has reports whether a function is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[key(name)]
	return ok
}

// Names returns the sorted worksheet names of all functions.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Definition returns the metadata registered under name.
func (r *Registry) Definition(name string) (Definition, bool) {
	e, ok := r.funcs[key(name)]
	return e.def, ok
}

// Definitions returns all definitions ordered by worksheet name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.funcs[key(name)].def)
	}
	return defs
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.names)
}

func key(name string) string {
	return strings.ToUpper(name)
}

func (b *registryBuilder) addFunction(def Definition, h Handler) error {
	name := def.WorksheetName()
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("function %q has no handler", name)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := b.funcs[key(name)]; exists {
		return fmt.Errorf("duplicate function name: %q", name)
	}
	b.funcs[key(name)] = entry{def: def, handler: h}
	return nil
}

// WithFunction registers h under def.
func WithFunction(def Definition, h Handler) Option {
	return func(b *registryBuilder) {
		if err := b.addFunction(def, h); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry. Middleware executes in
// FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithOptions applies a group of options, such as the ones returned by a
// manifest or a wasm module.
func WithOptions(opts ...Option) Option {
	return func(b *registryBuilder) {
		for _, opt := range opts {
			opt(b)
		}
	}
}
