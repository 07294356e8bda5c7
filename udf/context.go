package udf

import (
	"context"
)

// CallContext wraps a context.Context with the details of the worksheet
// function being invoked. Middleware uses it to read the function name and
// definition and to share call-scoped values.
type CallContext interface {
	context.Context

	// FunctionName returns the worksheet name of the invoked function.
	FunctionName() string

	// Definition returns the registration metadata of the invoked function.
	Definition() Definition

	// SetValue stores a call-scoped value. Unlike context.WithValue,
	// this mutates the existing CallContext.
	SetValue(key, value any)

	// GetValue retrieves a call-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type callContext struct {
	context.Context
	values map[any]any
	def    Definition
}

// NewCallContext creates a CallContext for def wrapping ctx.
func NewCallContext(ctx context.Context, def Definition) CallContext {
	return &callContext{
		Context: ctx,
		def:     def,
		values:  make(map[any]any),
	}
}

func (c *callContext) FunctionName() string {
	return c.def.WorksheetName()
}

func (c *callContext) Definition() Definition {
	return c.def
}

func (c *callContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *callContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// CallContextFrom returns ctx if it already is a CallContext, and otherwise
// wraps it in a new one for def.
func CallContextFrom(ctx context.Context, def Definition) CallContext {
	if cc, ok := ctx.(CallContext); ok {
		return cc
	}
	return NewCallContext(ctx, def)
}
