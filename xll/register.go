package xll

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// RegisterFunction publishes def to the host and returns the register id.
// The module name is obtained from the host, then the register call receives
// the module name, procedure, signature, worksheet name, argument names,
// macro type, category, shortcut, help topic, function help and one help
// string per argument, in that order.
func RegisterFunction(h Host, def udf.Definition) (float64, error) {
	name := def.WorksheetName()
	if err := def.Validate(); err != nil {
		return 0, &RegistrationError{Name: name, Err: err}
	}

	module, err := Invoke(h, xlcall.GetName)
	defer Release(h, module)
	if err != nil {
		return 0, &RegistrationError{Name: name, Err: fmt.Errorf("module name: %w", err)}
	}

	args := []*oper.Value{
		module,
		oper.Text(def.Procedure),
		oper.Text(def.Signature),
		oper.Text(name),
		oper.Text(def.ArgNames),
		oper.Int(int32(def.MacroType)),
		oper.Text(def.Category),
		oper.Text(def.Shortcut),
		oper.Text(def.Topic),
		oper.Text(def.Help),
	}
	for _, help := range def.ArgHelp {
		args = append(args, oper.Text(help))
	}
	defer func() {
		for _, a := range args[1:] {
			a.Free()
		}
	}()

	res, err := Invoke(h, xlcall.FnRegister, args...)
	defer Release(h, res)
	if err != nil {
		return 0, &RegistrationError{Name: name, Err: err}
	}
	if code, ok := res.ErrCode(); ok {
		return 0, &RegistrationError{Name: name, Code: code}
	}
	id, ok := res.Float()
	if !ok {
		return 0, &RegistrationError{Name: name, Err: fmt.Errorf("unexpected register result %s", res)}
	}
	return id, nil
}

// UnregisterFunction removes a function registered under id.
func UnregisterFunction(h Host, name string, id float64) error {
	res, err := InvokeLiterals(h, xlcall.FnUnregister, id)
	defer Release(h, res)
	if err != nil {
		return &RegistrationError{Name: name, Err: err}
	}
	if code, ok := res.ErrCode(); ok {
		return &RegistrationError{Name: name, Code: code}
	}
	if ok, _ := res.Boolean(); !ok {
		return &RegistrationError{Name: name, Err: errors.New("host declined to unregister")}
	}
	return nil
}
