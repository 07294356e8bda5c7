package udf

import (
	"context"
	"errors"

	"github.com/reglet-dev/reglet-xll/oper"
)

// Handler implements a worksheet function. args are borrowed from the caller
// and must not be freed or retained; the returned Value is owned by the
// caller. A nil result is reported to the host as Nil.
type Handler func(ctx context.Context, args []*oper.Value) *oper.Value

// CodeError is an error that maps to a specific host error code.
type CodeError struct {
	Code oper.ErrorCode
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err != nil {
		return e.Code.String() + ": " + e.Err.Error()
	}
	return e.Code.String()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// Fail returns an error reported to the host as code.
func Fail(code oper.ErrorCode, err error) error {
	return &CodeError{Code: code, Err: err}
}

// ErrorValue converts err into an Err Value: the code of a *CodeError in the
// chain, #VALUE! otherwise.
func ErrorValue(err error) *oper.Value {
	var ce *CodeError
	if errors.As(err, &ce) && ce.Code.Valid() {
		return oper.Error(ce.Code)
	}
	return oper.Error(oper.ErrValue)
}

// NumericFunc is a worksheet function over numbers.
type NumericFunc func(ctx context.Context, args []float64) (float64, error)

// Numeric adapts fn into a Handler. Num, Int and Bool arguments are coerced
// to float64, Missing and Nil arguments to 0; any other argument yields
// #VALUE!, and an Err argument is passed through. Errors returned by fn are
// converted with ErrorValue.
//
// Usage:
//
//	udf.WithFunction(udf.Definition{Procedure: "Add", Signature: "QQQ$"},
//	    udf.Numeric(func(_ context.Context, a []float64) (float64, error) {
//	        return a[0] + a[1], nil
//	    }))
func Numeric(fn NumericFunc) Handler {
	return func(ctx context.Context, args []*oper.Value) *oper.Value {
		nums := make([]float64, len(args))
		for i, a := range args {
			if code, ok := a.ErrCode(); ok {
				return oper.Error(code)
			}
			if a.IsMissing() || a.IsNil() {
				continue
			}
			f, ok := a.Float()
			if !ok {
				return oper.Error(oper.ErrValue)
			}
			nums[i] = f
		}
		res, err := fn(ctx, nums)
		if err != nil {
			return ErrorValue(err)
		}
		return oper.Number(res)
	}
}
