package udf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-xll/oper"
)

// Middleware wraps a Handler to add cross-cutting behavior. Middleware
// executes in FIFO order (first registered wraps outermost).
type Middleware func(next Handler) Handler

// Option is a functional option for configuring a Registry.
type Option func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that turns a panicking handler
// into a #VALUE! result. A panic must never unwind into the host.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, args []*oper.Value) (res *oper.Value) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "worksheet function panicked",
						"function", functionName(ctx),
						"panic", fmt.Sprint(r))
					res.Free()
					res = oper.Error(oper.ErrValue)
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every invocation at debug
// level with its duration and result kind.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, args []*oper.Value) *oper.Value {
			start := time.Now()
			res := next(ctx, args)
			logger.DebugContext(ctx, "worksheet function called",
				"function", functionName(ctx),
				"args", len(args),
				"result", res.KindName(),
				"duration", time.Since(start))
			return res
		}
	}
}

// ArgCountMiddleware returns a middleware that pads omitted trailing
// arguments with Missing Values so handlers can index every declared
// argument. The padding is freed after the call.
func ArgCountMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []*oper.Value) *oper.Value {
			cc, ok := ctx.(CallContext)
			if !ok {
				return next(ctx, args)
			}
			want := cc.Definition().ArgCount()
			if len(args) >= want {
				return next(ctx, args)
			}
			padded := make([]*oper.Value, want)
			copy(padded, args)
			for i := len(args); i < want; i++ {
				padded[i] = oper.Missing()
			}
			defer func() {
				for _, v := range padded[len(args):] {
					v.Free()
				}
			}()
			return next(ctx, padded)
		}
	}
}

func functionName(ctx context.Context) string {
	if cc, ok := ctx.(CallContext); ok {
		return cc.FunctionName()
	}
	return "unknown"
}
