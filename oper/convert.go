package oper

import (
	"fmt"
	"math"
	"strconv"

	"github.com/reglet-dev/reglet-xll/xlcall"
)

// RefList is the Go form of a Ref Value.
type RefList struct {
	Sheet xlcall.IDSheet
	Refs  []xlcall.XLREF12
}

// From converts a Go literal into a new Value:
//
//	nil                         Nil
//	bool                        Bool
//	int kinds within int32      Int
//	other ints, float32/64      Num
//	string                      Str (UTF-8; panics on invalid input)
//	[]uint16                    Str
//	ErrorCode                   Err (Missing for ErrMissing)
//	xlcall.XLREF12              SRef
//	RefList                     Ref
//	[]any                       1×n Multi
//	[][]any                     Multi, short rows padded with Nil
//
// Any other type yields #VALUE!.
func From(x any) *Value {
	switch t := x.(type) {
	case nil:
		return Nil()
	case bool:
		return Bool(t)
	case int:
		return fromInt64(int64(t))
	case int8:
		return Int(int32(t))
	case int16:
		return Int(int32(t))
	case int32:
		return Int(t)
	case int64:
		return fromInt64(t)
	case uint8:
		return Int(int32(t))
	case uint16:
		return Int(int32(t))
	case uint32:
		return fromInt64(int64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case string:
		return Text(t)
	case []uint16:
		return TextUTF16(t)
	case ErrorCode:
		return Error(t)
	case xlcall.XLREF12:
		return Range(t)
	case RefList:
		return Ranges(t.Sheet, t.Refs...)
	case []any:
		return fromRows([][]any{t})
	case [][]any:
		return fromRows(t)
	default:
		return Error(ErrValue)
	}
}

func fromInt64(i int64) *Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int(int32(i))
	}
	return Number(float64(i))
}

func fromRows(rows [][]any) *Value {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	g := Grid(len(rows), cols)
	for i, r := range rows {
		for j, x := range r {
			g.At(i+1, j+1).Set(From(x))
		}
	}
	return g
}

// Interface converts v into plain Go values: nil for Nil and Missing,
// float64, int32, bool, ErrorCode, string, xlcall.XLREF12, RefList, and
// [][]any for grids. The result shares no memory with v.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindNum:
		return v.op.Num()
	case KindInt:
		return v.op.Int()
	case KindBool:
		return v.op.Int() != 0
	case KindErr:
		return ErrorCode(v.op.Int())
	case KindStr:
		return v.Text()
	case KindSRef:
		return *v.op.SRef()
	case KindRef:
		refs := v.refTable()
		out := RefList{Sheet: v.op.SheetID(), Refs: make([]xlcall.XLREF12, len(refs))}
		copy(out.Refs, refs)
		return out
	case KindMulti:
		rows := make([][]any, v.Rows())
		for i := range rows {
			rows[i] = make([]any, v.Cols())
		}
		v.EachCell(func(r, c int, cell *Value) bool {
			rows[r-1][c-1] = cell.Interface()
			return true
		})
		return rows
	default:
		return nil
	}
}

// String formats v for diagnostics, e.g. Num(1.5), Str("a"), Err(#N/A) or
// Multi(2x3).
func (v *Value) String() string {
	switch v.Kind() {
	case KindNum:
		return "Num(" + strconv.FormatFloat(v.op.Num(), 'g', -1, 64) + ")"
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.op.Int())
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.op.Int() != 0)
	case KindErr:
		return "Err(" + v.ErrorText() + ")"
	case KindStr:
		return fmt.Sprintf("Str(%q)", v.Text())
	case KindMulti:
		return fmt.Sprintf("Multi(%dx%d)", v.Rows(), v.Cols())
	case KindSRef:
		r := v.op.SRef()
		return fmt.Sprintf("SRef(R%dC%d:R%dC%d)", r.RwFirst+1, r.ColFirst+1, r.RwLast+1, r.ColLast+1)
	case KindRef:
		return fmt.Sprintf("Ref(sheet=%d, n=%d)", v.op.SheetID(), v.RangeCount())
	case KindNone:
		return "<released>"
	default:
		return v.KindName()
	}
}
