package xll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
)

// Addin implements the callbacks the host drives over the life of an add-in.
type Addin struct {
	host     Host
	registry *udf.Registry
	logger   *slog.Logger

	mu         sync.Mutex
	registered map[string]float64
	pinned     map[*oper.Value]struct{}
}

// Option configures an Addin.
type Option func(*Addin)

// WithRegistry sets the functions the add-in publishes.
func WithRegistry(r *udf.Registry) Option {
	return func(a *Addin) {
		a.registry = r
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Addin) {
		a.logger = l
	}
}

// New creates an Addin talking to h.
func New(h Host, opts ...Option) (*Addin, error) {
	if h == nil {
		return nil, ErrNoHost
	}
	a := &Addin{
		host:       h,
		registered: make(map[string]float64),
		pinned:     make(map[*oper.Value]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.registry == nil {
		reg, err := udf.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		a.registry = reg
	}
	return a, nil
}

// Registry returns the functions the add-in publishes.
func (a *Addin) Registry() *udf.Registry {
	return a.registry
}

// AutoOpen registers every function of the registry. Functions the host
// rejects are logged and reported together; the others stay registered.
func (a *Addin) AutoOpen() error {
	var errs []error
	for _, def := range a.registry.Definitions() {
		name := def.WorksheetName()
		id, err := RegisterFunction(a.host, def)
		if err != nil {
			a.logger.Error("failed to register function", "function", name, "error", err)
			errs = append(errs, err)
			continue
		}
		a.mu.Lock()
		a.registered[name] = id
		a.mu.Unlock()
		a.logger.Debug("registered function", "function", name, "id", id)
	}
	return errors.Join(errs...)
}

// AutoClose unregisters the functions registered by AutoOpen and frees any
// results the host never handed back.
func (a *Addin) AutoClose() error {
	a.mu.Lock()
	registered := a.registered
	pinned := a.pinned
	a.registered = make(map[string]float64)
	a.pinned = make(map[*oper.Value]struct{})
	a.mu.Unlock()

	var errs []error
	for name, id := range registered {
		if err := UnregisterFunction(a.host, name, id); err != nil {
			a.logger.Warn("failed to unregister function", "function", name, "error", err)
			errs = append(errs, err)
		}
	}
	if len(pinned) > 0 {
		a.logger.Warn("freeing results not returned by the host", "count", len(pinned))
	}
	for v := range pinned {
		v.Free()
	}
	return errors.Join(errs...)
}

// Registered returns the register ids by worksheet name.
func (a *Addin) Registered() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.registered))
	for k, v := range a.registered {
		out[k] = v
	}
	return out
}

// Call dispatches a host call of the worksheet function name. The result is
// flagged plugin-free and stays alive until the host passes it to AutoFree.
// Call never panics.
func (a *Addin) Call(ctx context.Context, name string, args ...*oper.Value) (res *oper.Value) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "worksheet function panicked", "function", name, "panic", fmt.Sprint(r))
			res.Free()
			res = oper.Error(oper.ErrValue)
		}
		res.SetPluginFree(true)
		a.mu.Lock()
		a.pinned[res] = struct{}{}
		a.mu.Unlock()
	}()
	return a.registry.Invoke(ctx, name, args)
}

// AutoFree releases a result previously returned by Call. Values the add-in
// did not hand out are ignored.
func (a *Addin) AutoFree(v *oper.Value) {
	a.mu.Lock()
	_, ok := a.pinned[v]
	delete(a.pinned, v)
	a.mu.Unlock()

	if !ok {
		a.logger.Warn("auto-free of unknown value", "value", v.String())
		return
	}
	v.SetPluginFree(false)
	v.Free()
}

// Pending returns the number of results awaiting AutoFree.
func (a *Addin) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pinned)
}
