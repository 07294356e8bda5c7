// Package xlltest provides an in-memory host for testing add-ins without the
// spreadsheet application.
package xlltest

import (
	"fmt"
	"sync"
	"unicode/utf16"
	"unsafe"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// Call is one recorded host call. Args holds the arguments converted with
// oper.Value.Interface at the time of the call.
type Call struct {
	Func xlcall.Func
	Args []any
}

// Responder computes the result of a host function. The result is one of
// nil, bool, int32, float64, string, oper.ErrorCode, xlcall.XLREF12 or
// [][]any; text and grids are placed in host memory.
type Responder func(args []any) (any, xlcall.Ret)

// Host is a scripted xll.Host. By default it answers the module-name,
// register and unregister functions and implements the host free routine;
// other functions fail with RetInvXlfn unless a Responder is installed.
// It is safe for concurrent use.
type Host struct {
	mu         sync.Mutex
	module     string
	responders map[xlcall.Func]Responder
	calls      []Call
	nextID     float64
	registered map[float64]string
	buffers    map[unsafe.Pointer]any
	freed      int
}

// Option configures a Host.
type Option func(*Host)

// WithModule sets the module name returned for the module-name function.
func WithModule(name string) Option {
	return func(h *Host) {
		h.module = name
	}
}

// WithResponder installs r for fn, replacing any default behavior.
func WithResponder(fn xlcall.Func, r Responder) Option {
	return func(h *Host) {
		h.responders[fn] = r
	}
}

// WithFailure makes every call of fn fail with ret.
func WithFailure(fn xlcall.Func, ret xlcall.Ret) Option {
	return WithResponder(fn, func([]any) (any, xlcall.Ret) {
		return nil, ret
	})
}

// New creates a Host.
func New(opts ...Option) *Host {
	h := &Host{
		module:     `C:\AddIns\test.xll`,
		responders: make(map[xlcall.Func]Responder),
		nextID:     1000,
		registered: make(map[float64]string),
		buffers:    make(map[unsafe.Pointer]any),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Call implements xll.Host.
func (h *Host) Call(fn xlcall.Func, out *oper.Value, args ...*oper.Value) xlcall.Ret {
	h.mu.Lock()
	defer h.mu.Unlock()

	lits := make([]any, len(args))
	for i, a := range args {
		lits[i] = a.Interface()
	}
	h.calls = append(h.calls, Call{Func: fn, Args: lits})

	if fn == xlcall.Free {
		for _, a := range args {
			h.free(a.Raw())
		}
		return xlcall.RetSuccess
	}

	var res any
	ret := xlcall.RetSuccess
	if r, ok := h.responders[fn]; ok {
		res, ret = r(lits)
	} else {
		switch fn {
		case xlcall.GetName:
			res = h.module
		case xlcall.FnRegister:
			res = h.register(lits)
		case xlcall.FnUnregister:
			res = h.unregister(lits)
		default:
			ret = xlcall.RetInvXlfn
		}
	}

	if ret.OK() && out != nil {
		*out.Raw() = h.marshal(res)
	}
	return ret
}

func (h *Host) register(args []any) any {
	if len(args) < 4 {
		return oper.ErrValue
	}
	proc, _ := args[1].(string)
	name, _ := args[3].(string)
	if proc == "" {
		return oper.ErrValue
	}
	if name == "" {
		name = proc
	}
	h.nextID++
	h.registered[h.nextID] = name
	return h.nextID
}

func (h *Host) unregister(args []any) any {
	if len(args) != 1 {
		return oper.ErrValue
	}
	id, _ := args[0].(float64)
	if _, ok := h.registered[id]; !ok {
		return false
	}
	delete(h.registered, id)
	return true
}

func (h *Host) marshal(x any) xlcall.XLOPER12 {
	var op xlcall.XLOPER12
	switch t := x.(type) {
	case nil:
		op.Xltype = xlcall.TypeNil
	case bool:
		op.Xltype = xlcall.TypeBool
		if t {
			op.SetInt(1)
		}
	case int32:
		op.Xltype = xlcall.TypeInt
		op.SetInt(t)
	case int:
		op.Xltype = xlcall.TypeNum
		op.SetNum(float64(t))
	case float64:
		op.Xltype = xlcall.TypeNum
		op.SetNum(t)
	case oper.ErrorCode:
		op.Xltype = xlcall.TypeErr
		op.SetInt(int32(t))
	case string:
		units := utf16.Encode([]rune(t))
		buf := make([]uint16, len(units)+1)
		buf[0] = uint16(len(units))
		copy(buf[1:], units)
		op.Xltype = xlcall.TypeStr
		op.SetPtr(unsafe.Pointer(&buf[0]))
		h.buffers[op.Ptr()] = buf
	case xlcall.XLREF12:
		op.Xltype = xlcall.TypeSRef
		op.SetSRefCount(1)
		*op.SRef() = t
	case [][]any:
		cols := 0
		for _, r := range t {
			cols = max(cols, len(r))
		}
		op.Xltype = xlcall.TypeMulti
		op.SetDims(int32(len(t)), int32(cols))
		if len(t) == 0 || cols == 0 {
			break
		}
		cells := make([]xlcall.XLOPER12, len(t)*cols)
		for i, r := range t {
			for j := 0; j < cols; j++ {
				var cell any
				if j < len(r) {
					cell = r[j]
				}
				cells[i*cols+j] = h.marshal(cell)
			}
		}
		op.SetPtr(unsafe.Pointer(&cells[0]))
		h.buffers[op.Ptr()] = cells
	default:
		panic(fmt.Sprintf("xlltest: unsupported result type %T", x))
	}
	return op
}

func (h *Host) free(op *xlcall.XLOPER12) {
	switch op.Type() {
	case xlcall.TypeStr, xlcall.TypeMulti:
	default:
		return
	}
	buf, ok := h.buffers[op.Ptr()]
	if !ok {
		return
	}
	if cells, isGrid := buf.([]xlcall.XLOPER12); isGrid {
		for i := range cells {
			h.free(&cells[i])
		}
	}
	delete(h.buffers, op.Ptr())
	h.freed++
}

// Calls returns the recorded calls in order.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// CallsTo returns the recorded calls of fn in order.
func (h *Host) CallsTo(fn xlcall.Func) []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Call
	for _, c := range h.calls {
		if c.Func == fn {
			out = append(out, c)
		}
	}
	return out
}

// Registered returns the worksheet names of the registered functions by id.
func (h *Host) Registered() map[float64]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[float64]string, len(h.registered))
	for k, v := range h.registered {
		out[k] = v
	}
	return out
}

// Outstanding returns the number of host buffers not yet freed.
func (h *Host) Outstanding() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffers)
}

// Freed returns the number of host buffers given back through the free
// routine.
func (h *Host) Freed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.freed
}
