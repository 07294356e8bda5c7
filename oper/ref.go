package oper

import (
	"math"
	"unsafe"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// Range returns an SRef Value for a single range on the active sheet.
func Range(ref xlcall.XLREF12) *Value {
	v := newValue(xlcall.TypeSRef)
	v.op.SetSRefCount(1)
	*v.op.SRef() = ref
	return v
}

// Ranges returns a Ref Value listing refs on the given sheet. The count header
// and the ranges share one buffer. At most 65535 ranges are kept.
func Ranges(sheet xlcall.IDSheet, refs ...xlcall.XLREF12) *Value {
	n := min(len(refs), math.MaxUint16)
	words := abi.Alloc[uint32](xlcall.MRefWords(n))
	p := unsafe.Pointer(&words[0])
	xlcall.SetMRefCount(p, n)
	copy(xlcall.MRefTable(p), refs[:n])

	v := newValue(xlcall.TypeRef)
	v.op.SetSheetID(sheet)
	v.op.SetPtr(p)
	return v
}

// Ref returns the range of an SRef Value.
func (v *Value) Ref() (xlcall.XLREF12, bool) {
	if !v.IsSRef() {
		return xlcall.XLREF12{}, false
	}
	return *v.op.SRef(), true
}

// SheetID returns the sheet of a Ref Value.
func (v *Value) SheetID() (xlcall.IDSheet, bool) {
	if !v.IsRef() {
		return 0, false
	}
	return v.op.SheetID(), true
}

func (v *Value) refTable() []xlcall.XLREF12 {
	if !v.IsRef() {
		return nil
	}
	return xlcall.MRefTable(v.op.Ptr())
}

// RangeCount returns the number of ranges of a Ref Value, or 0.
func (v *Value) RangeCount() int {
	return len(v.refTable())
}

// RangeAt returns the 1-based i-th range of a Ref Value, or the shared NullRef
// when v is not a Ref Value, has been moved from, or i is out of range.
func (v *Value) RangeAt(i int) *xlcall.XLREF12 {
	refs := v.refTable()
	if i < 1 || i > len(refs) {
		return &nullRef
	}
	return &refs[i-1]
}

// EachRange calls fn for every range of a Ref Value with 1-based indices and
// stops as soon as fn returns false.
func (v *Value) EachRange(fn func(i int, ref *xlcall.XLREF12) bool) {
	refs := v.refTable()
	for i := range refs {
		if !fn(i+1, &refs[i]) {
			return
		}
	}
}
