package xll

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// ErrNoHost is returned when the host call primitive is unavailable.
var ErrNoHost = errors.New("xll: host entry point not available")

// CallError reports a host call that returned a failure status.
type CallError struct {
	Func xlcall.Func
	Ret  xlcall.Ret
}

func (e *CallError) Error() string {
	return fmt.Sprintf("xll: %s failed: %s", e.Func, e.Ret)
}

// RegistrationError reports a function the host refused to register or
// unregister.
type RegistrationError struct {
	Name string
	// Code is the Err Value the host answered with. It is meaningful only
	// when Err is nil.
	Code oper.ErrorCode
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xll: register %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("xll: register %q: host returned %s", e.Name, e.Code)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
