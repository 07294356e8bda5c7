package xll

import (
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// Host is the host's call primitive. Call invokes fn with args and writes the
// result into out, which may be nil for functions without a result. Calls are
// synchronous; args are only read during the call.
type Host interface {
	Call(fn xlcall.Func, out *oper.Value, args ...*oper.Value) xlcall.Ret
}

// HostFunc adapts an ordinary function to the Host interface.
type HostFunc func(fn xlcall.Func, out *oper.Value, args ...*oper.Value) xlcall.Ret

// Call calls f.
func (f HostFunc) Call(fn xlcall.Func, out *oper.Value, args ...*oper.Value) xlcall.Ret {
	return f(fn, out, args...)
}

// MaxArgs is the largest argument count the host accepts in one call.
const MaxArgs = 255
