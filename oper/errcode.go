package oper

import "github.com/reglet-dev/reglet-xll/xlcall"

// ErrorCode is a host error carried by an Err Value.
type ErrorCode int32

// Host error codes.
const (
	ErrNull        = ErrorCode(xlcall.ErrNull)
	ErrDiv0        = ErrorCode(xlcall.ErrDiv0)
	ErrValue       = ErrorCode(xlcall.ErrValue)
	ErrRef         = ErrorCode(xlcall.ErrRef)
	ErrName        = ErrorCode(xlcall.ErrName)
	ErrNum         = ErrorCode(xlcall.ErrNum)
	ErrNA          = ErrorCode(xlcall.ErrNA)
	ErrGettingData = ErrorCode(xlcall.ErrGettingData)

	// ErrMissing is not a host error. Passing it to Error produces a Missing
	// Value, the host's marker for an omitted argument.
	ErrMissing = ErrGettingData + 1
)

// ErrorCodes lists the eight host error codes in ascending order.
var ErrorCodes = []ErrorCode{
	ErrNull, ErrDiv0, ErrValue, ErrRef, ErrName, ErrNum, ErrNA, ErrGettingData,
}

// String returns the display token of c, or "" if c is not a host error.
func (c ErrorCode) String() string {
	switch c {
	case ErrNull:
		return "#NULL!"
	case ErrDiv0:
		return "#DIV/0!"
	case ErrValue:
		return "#VALUE!"
	case ErrRef:
		return "#REF!"
	case ErrName:
		return "#NAME?"
	case ErrNum:
		return "#NUM!"
	case ErrNA:
		return "#N/A"
	case ErrGettingData:
		return "#GETTING_DATA"
	default:
		return ""
	}
}

// Valid reports whether c is one of the host error codes.
func (c ErrorCode) Valid() bool {
	return c.String() != ""
}

// ParseErrorCode maps a display token back to its code.
func ParseErrorCode(token string) (ErrorCode, bool) {
	for _, c := range ErrorCodes {
		if c.String() == token {
			return c, true
		}
	}
	return 0, false
}

// ErrorText returns the display token when v is an Err Value and "" otherwise.
func (v *Value) ErrorText() string {
	if !v.IsError() {
		return ""
	}
	return ErrorCode(v.op.Int()).String()
}

// ErrCode returns the error code of an Err Value.
func (v *Value) ErrCode() (ErrorCode, bool) {
	if !v.IsError() {
		return 0, false
	}
	return ErrorCode(v.op.Int()), true
}
