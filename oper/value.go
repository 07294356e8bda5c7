// Package oper implements Value, an owning wrapper around the host's XLOPER12
// variant.
//
// A Value has exactly one owner. Buffers (text, grid cells, range lists) are
// moved between Values, never shared, and are released by Free. Values must be
// handled through pointers; copying a Value struct duplicates buffer ownership
// and is reported by go vet.
//
// Every Value built by a constructor in this package, including every grid
// cell, is counted by a process-wide allocation counter (see Live) and should
// eventually be passed to Free:
//
//	v := oper.Grid(2, 2)
//	defer v.Free()
//	v.At(1, 1).Set(oper.Number(42))
package oper

import (
	"sync/atomic"
	"unsafe"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// noCopy makes go vet's copylocks check reject copies of Value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Value is an owning XLOPER12.
//
// The zero Value is the unconstructed (or released) state: its KindName is
// empty and Free is a no-op.
type Value struct {
	_  noCopy
	op xlcall.XLOPER12
}

// Value must stay layout-identical to XLOPER12: cell buffers and host
// pointers are reinterpreted in both directions.
var (
	_ [unsafe.Sizeof(Value{}) - unsafe.Sizeof(xlcall.XLOPER12{})]struct{}
	_ [unsafe.Sizeof(xlcall.XLOPER12{}) - unsafe.Sizeof(Value{})]struct{}
)

// live counts constructed Values that have not been freed.
var live atomic.Int64

// Live returns the number of constructed Values that have not been freed. It
// is a leak diagnostic; sentinels are never counted.
func Live() int64 {
	return live.Load()
}

var (
	nullValue = Value{op: xlcall.XLOPER12{Xltype: xlcall.TypeNil}}
	nullRef   xlcall.XLREF12
)

// NullValue returns the shared Nil sentinel returned by out-of-range grid
// access. Mutating methods called on it do nothing.
func NullValue() *Value {
	return &nullValue
}

// NullRef returns the shared empty range returned by out-of-range range-list
// access. Callers must not write through it.
func NullRef() *xlcall.XLREF12 {
	return &nullRef
}

// IsSentinel reports whether v is the shared Nil sentinel.
func (v *Value) IsSentinel() bool {
	return v == &nullValue
}

func newValue(xltype uint32) *Value {
	v := &Value{}
	v.op.Xltype = xltype
	live.Add(1)
	return v
}

// Attach views a host-provided XLOPER12 as a Value without taking a copy.
// The Value aliases p: ownership stays with whoever owns p.
func Attach(p *xlcall.XLOPER12) *Value {
	return (*Value)(unsafe.Pointer(p))
}

// Raw returns the underlying XLOPER12 for handing to the host.
func (v *Value) Raw() *xlcall.XLOPER12 {
	return &v.op
}

// Kind returns the discriminant with the ownership bits masked off.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNone
	}
	return Kind(v.op.Type())
}

// KindName returns the short label of the Kind.
func (v *Value) KindName() string {
	return v.Kind().String()
}

func (v *Value) ownsBuffer() bool {
	switch v.op.Type() {
	case xlcall.TypeStr, xlcall.TypeMulti, xlcall.TypeRef:
		return true
	}
	return false
}

// HasBuffer reports whether v currently holds a text, cell or range-list
// buffer. Moved-from Values hold none.
func (v *Value) HasBuffer() bool {
	return v.ownsBuffer() && v.op.Ptr() != nil
}

// PluginOwned reports whether v's buffer was allocated by this plugin.
// Values without a buffer report false.
func (v *Value) PluginOwned() bool {
	return v.HasBuffer() && abi.Owns(v.op.Ptr())
}

// Free releases everything v owns and returns it to the zero state. Grid
// cells are freed last to first before the cell buffer itself. Free is safe
// to call on moved-from, already freed and nil Values.
//
// Free never consults the ownership bits. Buffers the plugin allocator does
// not know about are left alone.
func (v *Value) Free() {
	if v == nil || v == &nullValue || v.op.Xltype == 0 {
		return
	}
	v.release()
	v.op = xlcall.XLOPER12{}
	live.Add(-1)
}

func (v *Value) release() {
	if !v.ownsBuffer() {
		return
	}
	p := v.op.Ptr()
	if p == nil {
		return
	}
	// Foreign cell buffers are neither walked nor released.
	if !abi.Owns(p) {
		v.op.SetPtr(nil)
		return
	}
	if v.op.Type() == xlcall.TypeMulti {
		cells := v.cells()
		for i := len(cells) - 1; i >= 0; i-- {
			cells[i].Free()
		}
	}
	abi.Release(p)
	v.op.SetPtr(nil)
}

// MoveFrom transfers src into v. src is copied bit for bit and its buffer
// pointer cleared, so freeing src afterwards releases nothing; then whatever v
// owned is released. src remains a live Value owned by the caller, unless it
// is one of v's own cells, which are freed with the rest of v.
//
// Moving a grid into one of its own cells does nothing.
func (v *Value) MoveFrom(src *Value) {
	if v == nil || src == nil || v == src || v == &nullValue || src.holdsCell(v) {
		return
	}
	moved := src.op
	if src != &nullValue && src.ownsBuffer() {
		src.op.SetPtr(nil)
	}
	wasLive := v.op.Xltype != 0
	v.release()
	v.op = moved
	switch isLive := v.op.Xltype != 0; {
	case isLive && !wasLive:
		live.Add(1)
	case !isLive && wasLive:
		live.Add(-1)
	}
}

// Take moves v into a newly counted Value and returns it. v is left as an
// inert moved-from Value that its owner still frees.
func (v *Value) Take() *Value {
	nv := &Value{}
	nv.MoveFrom(v)
	return nv
}

// Set moves a temporary into v and frees the temporary's shell:
//
//	grid.At(1, 2).Set(oper.Text("total"))
func (v *Value) Set(src *Value) {
	if v == src || src.holdsCell(v) {
		return
	}
	if v == &nullValue {
		src.Free()
		return
	}
	v.MoveFrom(src)
	src.Free()
}

// Disown clears v's buffer pointer without releasing it. It is used once a
// foreign allocator has reclaimed the buffer.
func (v *Value) Disown() {
	if v == nil || v == &nullValue || !v.ownsBuffer() {
		return
	}
	v.op.SetPtr(nil)
}
