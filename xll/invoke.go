package xll

import (
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// Invoke calls fn on h and returns its result as a new Value owned by the
// caller. A result pointing into host memory is flagged host-free and must be
// passed to Release. When the host reports a failure the result is #VALUE!
// and the error is a *CallError.
func Invoke(h Host, fn xlcall.Func, args ...*oper.Value) (*oper.Value, error) {
	if len(args) > MaxArgs {
		return oper.Error(oper.ErrValue), &CallError{Func: fn, Ret: xlcall.RetInvCount}
	}

	res := oper.Nil()
	ret := h.Call(fn, res, args...)
	if !ret.OK() {
		// Nothing the host may have left behind is ours to free.
		if !res.PluginOwned() {
			res.Disown()
		}
		res.Set(oper.Error(oper.ErrValue))
		return res, &CallError{Func: fn, Ret: ret}
	}

	if res.HasBuffer() && !res.PluginOwned() {
		res.SetHostFree(true)
	}
	return res, nil
}

// InvokeLiterals is Invoke with Go literals as arguments. Each literal is
// converted with oper.From and freed once the call returns.
func InvokeLiterals(h Host, fn xlcall.Func, literals ...any) (*oper.Value, error) {
	args := make([]*oper.Value, len(literals))
	for i, lit := range literals {
		args[i] = oper.From(lit)
	}
	defer func() {
		for _, a := range args {
			a.Free()
		}
	}()
	return Invoke(h, fn, args...)
}

// Evaluate asks the host to evaluate formula, e.g. "=SUM(1,2)".
func Evaluate(h Host, formula string) (*oper.Value, error) {
	return InvokeLiterals(h, xlcall.FnEvaluate, formula)
}

// Release frees a Value received from the host. Host-origin Values are
// handed to the host's free routine first; everything else is freed
// directly.
func Release(h Host, v *oper.Value) {
	if v == nil || v.IsSentinel() {
		return
	}
	if v.Origin() == oper.OriginHost {
		h.Call(xlcall.Free, nil, v)
		v.Disown()
		v.SetHostFree(false)
	}
	v.Free()
}
