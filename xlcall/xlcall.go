// Package xlcall declares the host's native value layout and the numeric
// constants of the host call interface.
//
// The structs in this package are the raw, fixed-layout records that cross the
// host/plugin boundary by pointer. They carry no behaviour beyond bit-level
// views; ownership and lifetime live in package oper.
package xlcall

import (
	"math"
	"unsafe"
)

// IDSheet identifies a worksheet inside the host.
type IDSheet uintptr

// XLREF12 is a rectangular cell range. Rows and columns are zero-based in the
// host's encoding.
type XLREF12 struct {
	RwFirst  int32
	RwLast   int32
	ColFirst int32
	ColLast  int32
}

// Val is the 24-byte payload union of an XLOPER12. Every member starts at
// offset 0: the buffer pointer of Str, Multi and Ref values, the scalar of
// Num, Int, Bool and Err values, and the count word of an SRef value. Multi
// dimensions and a Ref sheet id follow the pointer; an SRef range sits at 4.
//
// Val holds no Go pointer type. Buffers stored in it must be kept reachable
// by their allocator.
type Val [3]uint64

// XLOPER12 is the host's tagged variant.
type XLOPER12 struct {
	Val Val
	// Xltype holds the type bits and the ownership bits.
	Xltype uint32
	_      uint32
}

// Byte offsets of the union members.
const (
	OffsetSRefRange = 4
	OffsetRows      = unsafe.Sizeof(uintptr(0))
	OffsetCols      = OffsetRows + 4
	OffsetSheetID   = OffsetRows
)

func (x *XLOPER12) at(off uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(&x.Val), off)
}

// Type returns the type bits with the ownership bits masked off.
func (x *XLOPER12) Type() uint32 {
	return x.Xltype & TypeMask
}

// Ptr reads the buffer pointer of a Str, Multi or Ref value.
func (x *XLOPER12) Ptr() unsafe.Pointer {
	return *(*unsafe.Pointer)(x.at(0))
}

// SetPtr writes the buffer pointer of a Str, Multi or Ref value.
func (x *XLOPER12) SetPtr(p unsafe.Pointer) {
	*(*unsafe.Pointer)(x.at(0)) = p
}

// Num reads the num member.
func (x *XLOPER12) Num() float64 {
	return math.Float64frombits(x.Val[0])
}

// SetNum writes the num member.
func (x *XLOPER12) SetNum(f float64) {
	x.Val[0] = math.Float64bits(f)
}

// Int reads the 32-bit w, xbool or err member.
func (x *XLOPER12) Int() int32 {
	return *(*int32)(x.at(0))
}

// SetInt writes the 32-bit w, xbool or err member.
func (x *XLOPER12) SetInt(i int32) {
	*(*int32)(x.at(0)) = i
}

// Rows and Cols read the dimensions of a Multi value.
func (x *XLOPER12) Rows() int32 { return *(*int32)(x.at(OffsetRows)) }
func (x *XLOPER12) Cols() int32 { return *(*int32)(x.at(OffsetCols)) }

// SetDims writes the dimensions of a Multi value.
func (x *XLOPER12) SetDims(rows, cols int32) {
	*(*int32)(x.at(OffsetRows)) = rows
	*(*int32)(x.at(OffsetCols)) = cols
}

// SheetID reads the sheet id of a Ref value.
func (x *XLOPER12) SheetID() IDSheet {
	return *(*IDSheet)(x.at(OffsetSheetID))
}

// SetSheetID writes the sheet id of a Ref value.
func (x *XLOPER12) SetSheetID(id IDSheet) {
	*(*IDSheet)(x.at(OffsetSheetID)) = id
}

// SRefCount reads the count word of an SRef value. It is always 1.
func (x *XLOPER12) SRefCount() uint16 {
	return *(*uint16)(x.at(0))
}

// SetSRefCount writes the count word of an SRef value.
func (x *XLOPER12) SetSRefCount(n uint16) {
	*(*uint16)(x.at(0)) = n
}

// SRef returns a view of the single range of an SRef value.
func (x *XLOPER12) SRef() *XLREF12 {
	return (*XLREF12)(x.at(OffsetSRefRange))
}

// MRefHeaderSize is the byte offset of the range table inside an XLMREF12
// buffer: a 16-bit count padded to the alignment of XLREF12.
const MRefHeaderSize = 4

// MRefWords returns the number of 32-bit words needed for an XLMREF12 buffer
// holding n ranges.
func MRefWords(n int) int {
	return MRefHeaderSize/4 + n*int(unsafe.Sizeof(XLREF12{})/4)
}

// MRefCount reads the count header of an XLMREF12 buffer.
func MRefCount(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return int(*(*uint16)(p))
}

// SetMRefCount writes the count header of an XLMREF12 buffer.
func SetMRefCount(p unsafe.Pointer, n int) {
	*(*uint16)(p) = uint16(n)
}

// MRefTable returns the range table of an XLMREF12 buffer.
func MRefTable(p unsafe.Pointer) []XLREF12 {
	n := MRefCount(p)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*XLREF12)(unsafe.Add(p, MRefHeaderSize)), n)
}

// StrUnits returns a length-prefixed string buffer, including the prefix.
func StrUnits(p unsafe.Pointer) []uint16 {
	if p == nil {
		return nil
	}
	n := *(*uint16)(p)
	return unsafe.Slice((*uint16)(p), int(n)+1)
}
