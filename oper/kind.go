package oper

import "github.com/reglet-dev/reglet-xll/xlcall"

// Kind is the discriminant of a Value.
type Kind uint32

// Kinds. KindNone is the zero Value's kind and never appears on a
// constructed Value.
const (
	KindNone    Kind = 0
	KindNum     Kind = Kind(xlcall.TypeNum)
	KindStr     Kind = Kind(xlcall.TypeStr)
	KindBool    Kind = Kind(xlcall.TypeBool)
	KindRef     Kind = Kind(xlcall.TypeRef) // list of ranges on one sheet
	KindErr     Kind = Kind(xlcall.TypeErr)
	KindFlow    Kind = Kind(xlcall.TypeFlow)
	KindMulti   Kind = Kind(xlcall.TypeMulti) // two-dimensional array of Values
	KindMissing Kind = Kind(xlcall.TypeMissing)
	KindNil     Kind = Kind(xlcall.TypeNil)
	KindSRef    Kind = Kind(xlcall.TypeSRef) // single range on the active sheet
	KindInt     Kind = Kind(xlcall.TypeInt)
	KindBigData Kind = Kind(xlcall.TypeBigData)
)

// String returns the stable short label of k, or "" for an unknown kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindNum:
		return "Num"
	case KindStr:
		return "Str"
	case KindBool:
		return "Bool"
	case KindRef:
		return "Ref"
	case KindErr:
		return "Err"
	case KindFlow:
		return "Flow"
	case KindMulti:
		return "Multi"
	case KindNil:
		return "Nil"
	case KindMissing:
		return "Missing"
	case KindSRef:
		return "SRef"
	case KindBigData:
		return "BigData"
	default:
		return ""
	}
}

func (v *Value) IsNum() bool     { return v.Kind() == KindNum }
func (v *Value) IsInt() bool     { return v.Kind() == KindInt }
func (v *Value) IsStr() bool     { return v.Kind() == KindStr }
func (v *Value) IsBool() bool    { return v.Kind() == KindBool }
func (v *Value) IsError() bool   { return v.Kind() == KindErr }
func (v *Value) IsFlow() bool    { return v.Kind() == KindFlow }
func (v *Value) IsMulti() bool   { return v.Kind() == KindMulti }
func (v *Value) IsNil() bool     { return v.Kind() == KindNil }
func (v *Value) IsMissing() bool { return v.Kind() == KindMissing }
func (v *Value) IsRef() bool     { return v.Kind() == KindRef }
func (v *Value) IsSRef() bool    { return v.Kind() == KindSRef }
func (v *Value) IsBigData() bool { return v.Kind() == KindBigData }

// OK reports whether v carries a value rather than an error: it is true for
// every kind except Err, including Nil and Missing.
func (v *Value) OK() bool {
	return !v.IsError()
}
