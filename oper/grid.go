package oper

import (
	"unsafe"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// Host worksheet limits.
const (
	MaxRows = 1 << 20
	MaxCols = 1 << 14
)

// Grid returns a rows×cols Multi Value whose cells are all Nil. Dimensions are
// clamped to the worksheet limits; a non-positive dimension yields an empty
// grid without a cell buffer.
//
// A cell buffer larger than the allocator ceiling (see abi.Configure) panics,
// like any other allocation failure, and leaves Live unchanged.
func Grid(rows, cols int) *Value {
	if rows <= 0 || cols <= 0 {
		return newValue(xlcall.TypeMulti)
	}
	rows, cols = min(rows, MaxRows), min(cols, MaxCols)

	cells := abi.Alloc[Value](rows * cols)
	for i := range cells {
		cells[i].op.Xltype = xlcall.TypeNil
	}

	v := newValue(xlcall.TypeMulti)
	live.Add(int64(len(cells)))
	v.op.SetDims(int32(rows), int32(cols))
	v.op.SetPtr(unsafe.Pointer(&cells[0]))
	return v
}

// Rows returns the row count of a Multi Value, or 0.
func (v *Value) Rows() int {
	if !v.IsMulti() {
		return 0
	}
	return int(v.op.Rows())
}

// Cols returns the column count of a Multi Value, or 0.
func (v *Value) Cols() int {
	if !v.IsMulti() {
		return 0
	}
	return int(v.op.Cols())
}

// cells returns the cell buffer of a Multi Value.
func (v *Value) cells() []Value {
	if !v.IsMulti() || v.op.Ptr() == nil {
		return nil
	}
	n := int(v.op.Rows()) * int(v.op.Cols())
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*Value)(v.op.Ptr()), n)
}

// holdsCell reports whether c lies in v's cell buffer.
func (v *Value) holdsCell(c *Value) bool {
	cells := v.cells()
	if cells == nil || c == nil {
		return false
	}
	first := uintptr(unsafe.Pointer(&cells[0]))
	end := first + uintptr(len(cells))*unsafe.Sizeof(Value{})
	p := uintptr(unsafe.Pointer(c))
	return p >= first && p < end
}

// At returns the cell at the 1-based position (row, col). It returns the
// shared NullValue when v is not a grid, has been moved from, or the position
// is out of range.
func (v *Value) At(row, col int) *Value {
	cells := v.cells()
	if cells == nil || row < 1 || col < 1 || row > v.Rows() || col > v.Cols() {
		return &nullValue
	}
	return &cells[(row-1)*v.Cols()+col-1]
}

// EachCell calls fn for every cell in row-major order with 1-based indices
// and stops as soon as fn returns false. It does nothing unless v is a grid.
func (v *Value) EachCell(fn func(row, col int, cell *Value) bool) {
	cells := v.cells()
	if cells == nil {
		return
	}
	rows, cols := v.Rows(), v.Cols()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !fn(r+1, c+1, &cells[r*cols+c]) {
				return
			}
		}
	}
}
