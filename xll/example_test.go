package xll_test

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
	"github.com/reglet-dev/reglet-xll/xll"
	"github.com/reglet-dev/reglet-xll/xll/xlltest"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

func ExampleAddin() {
	add := udf.Numeric(func(_ context.Context, a []float64) (float64, error) {
		return a[0] + a[1], nil
	})
	reg, err := udf.NewRegistry(
		udf.WithFunction(udf.Definition{Procedure: "xAdd", Name: "ADD", Signature: "QQQ$"}, add),
	)
	if err != nil {
		panic(err)
	}

	addin, err := xll.New(xlltest.New(), xll.WithRegistry(reg))
	if err != nil {
		panic(err)
	}
	if err := addin.AutoOpen(); err != nil {
		panic(err)
	}
	defer addin.AutoClose()

	x, y := oper.Number(1.5), oper.Number(2)
	defer x.Free()
	defer y.Free()

	res := addin.Call(context.Background(), "add", x, y)
	fmt.Println(res, res.Origin())
	addin.AutoFree(res)
	// Output: Num(3.5) plugin
}

func ExampleInvokeLiterals() {
	host := xlltest.New(xlltest.WithResponder(xlcall.FnConcatenate, func(args []any) (any, xlcall.Ret) {
		s := ""
		for _, a := range args {
			s += fmt.Sprint(a)
		}
		return s, xlcall.RetSuccess
	}))
	res, err := xll.InvokeLiterals(host, xlcall.FnConcatenate, "foo", 42, true)
	if err != nil {
		panic(err)
	}
	defer xll.Release(host, res)
	fmt.Println(res.Text())
	// Output: foo42true
}
