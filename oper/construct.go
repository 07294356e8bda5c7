package oper

import "github.com/reglet-dev/reglet-xll/xlcall"

// Nil returns an empty Value.
func Nil() *Value {
	return newValue(xlcall.TypeNil)
}

// Missing returns the marker for an omitted argument.
func Missing() *Value {
	return newValue(xlcall.TypeMissing)
}

// Number returns a Num Value.
func Number(f float64) *Value {
	v := newValue(xlcall.TypeNum)
	v.op.SetNum(f)
	return v
}

// Int returns an Int Value.
func Int(i int32) *Value {
	v := newValue(xlcall.TypeInt)
	v.op.SetInt(i)
	return v
}

// Bool returns a Bool Value.
func Bool(b bool) *Value {
	v := newValue(xlcall.TypeBool)
	if b {
		v.op.SetInt(1)
	}
	return v
}

// Error returns an Err Value carrying code. ErrMissing yields a Missing Value
// instead; Missing is never an error.
func Error(code ErrorCode) *Value {
	if code == ErrMissing {
		return Missing()
	}
	v := newValue(xlcall.TypeErr)
	v.op.SetInt(int32(code))
	return v
}

// Num returns the number held by a Num Value.
func (v *Value) Num() (float64, bool) {
	if !v.IsNum() {
		return 0, false
	}
	return v.op.Num(), true
}

// Int32 returns the integer held by an Int Value.
func (v *Value) Int32() (int32, bool) {
	if !v.IsInt() {
		return 0, false
	}
	return v.op.Int(), true
}

// Boolean returns the flag held by a Bool Value.
func (v *Value) Boolean() (bool, bool) {
	if !v.IsBool() {
		return false, false
	}
	return v.op.Int() != 0, true
}

// Float coerces Num, Int and Bool Values to float64, the way the host does for
// numeric arguments.
func (v *Value) Float() (float64, bool) {
	switch v.Kind() {
	case KindNum:
		return v.op.Num(), true
	case KindInt:
		return float64(v.op.Int()), true
	case KindBool:
		if v.op.Int() != 0 {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// SetHostFree sets or clears the bit asking the host to reclaim v.
func (v *Value) SetHostFree(flag bool) {
	v.setBit(xlcall.BitXLFree, flag)
}

// SetPluginFree sets or clears the bit asking the host to hand v back to the
// plugin's auto-free callback.
func (v *Value) SetPluginFree(flag bool) {
	v.setBit(xlcall.BitDLLFree, flag)
}

func (v *Value) setBit(bit uint32, flag bool) {
	if v == nil || v == &nullValue {
		return
	}
	if flag {
		v.op.Xltype |= bit
	} else {
		v.op.Xltype &^= bit
	}
}

// HostFree reports whether the host-reclaims bit is set.
func (v *Value) HostFree() bool {
	return v != nil && v.op.Xltype&xlcall.BitXLFree != 0
}

// PluginFree reports whether the plugin-reclaims bit is set.
func (v *Value) PluginFree() bool {
	return v != nil && v.op.Xltype&xlcall.BitDLLFree != 0
}

// Origin names the allocator responsible for a Value's memory.
type Origin uint8

const (
	// OriginLocal Values are owned by the code holding them.
	OriginLocal Origin = iota
	// OriginPlugin Values were handed to the host and come back through the
	// auto-free callback.
	OriginPlugin
	// OriginHost Values must be given back to the host's free routine.
	OriginHost
)

func (o Origin) String() string {
	switch o {
	case OriginPlugin:
		return "plugin"
	case OriginHost:
		return "host"
	default:
		return "local"
	}
}

// Origin derives the responsible allocator from the ownership bits. The host
// bit wins when both are set.
func (v *Value) Origin() Origin {
	switch {
	case v.HostFree():
		return OriginHost
	case v.PluginFree():
		return OriginPlugin
	default:
		return OriginLocal
	}
}
