package wasmudf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-xll/internal/testutil"
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
	"github.com/reglet-dev/reglet-xll/wasmudf"
)

// Exports add(f64, f64) f64, twice(i32) i32 and trap() f64, which executes
// unreachable.
var mathWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types
	0x01, 0x10, 0x03,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x00, 0x01, 0x7c,
	// functions
	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,
	// exports
	0x07, 0x16, 0x03,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x05, 't', 'w', 'i', 'c', 'e', 0x00, 0x01,
	0x04, 't', 'r', 'a', 'p', 0x00, 0x02,
	// code
	0x0a, 0x15, 0x03,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0x6a, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
}

func load(t *testing.T, opts ...wasmudf.Option) *wasmudf.Module {
	t.Helper()
	ctx := context.Background()
	m, err := wasmudf.Load(ctx, mathWasm, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.Close(ctx))
	})
	return m
}

func call(t *testing.T, m *wasmudf.Module, name string, args ...*oper.Value) *oper.Value {
	t.Helper()
	h, ok := m.Handler(name)
	require.True(t, ok, name)
	res := h(context.Background(), args)
	for _, a := range args {
		a.Free()
	}
	return res
}

func TestLoad_Exports(t *testing.T) {
	m := load(t)
	assert.Equal(t, []string{"add", "trap", "twice"}, m.Exports())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := wasmudf.Load(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}

func TestDefinitions(t *testing.T) {
	m := load(t, wasmudf.WithPrefix("WASM."), wasmudf.WithCategory("Math"))

	defs := m.Definitions()
	require.Len(t, defs, 3)

	add := defs[0]
	assert.Equal(t, "add", add.Procedure)
	assert.Equal(t, "WASM.add", add.WorksheetName())
	assert.Equal(t, "QQQ", add.Signature)
	assert.Equal(t, "x1,x2", add.ArgNames)
	assert.Equal(t, "Math", add.Category)
	assert.Equal(t, udf.MacroFunction, add.MacroType)
	assert.Equal(t, 2, add.ArgCount())
	assert.NoError(t, add.Validate())

	assert.Equal(t, "Q", defs[1].Signature)
	assert.Equal(t, "QQ", defs[2].Signature)
}

func TestDefinitions_DefaultCategory(t *testing.T) {
	m := load(t)
	for _, d := range m.Definitions() {
		assert.Equal(t, wasmudf.DefaultCategory, d.Category)
	}
}

func TestHandler(t *testing.T) {
	testutil.CheckLeaks(t)
	m := load(t)

	tests := []struct {
		name string
		fn   string
		args func() []*oper.Value
		num  float64
		code oper.ErrorCode
		fail bool
	}{
		{"add numbers", "add", func() []*oper.Value { return []*oper.Value{oper.Number(1.5), oper.Number(2.25)} }, 3.75, 0, false},
		{"add ints and bools", "add", func() []*oper.Value { return []*oper.Value{oper.Int(2), oper.Bool(true)} }, 3, 0, false},
		{"missing counts as zero", "add", func() []*oper.Value { return []*oper.Value{oper.Missing(), oper.Number(4)} }, 4, 0, false},
		{"twice", "twice", func() []*oper.Value { return []*oper.Value{oper.Number(21)} }, 42, 0, false},
		{"text argument", "add", func() []*oper.Value { return []*oper.Value{oper.Text("x"), oper.Number(1)} }, 0, oper.ErrValue, true},
		{"error passes through", "add", func() []*oper.Value { return []*oper.Value{oper.Number(1), oper.Error(oper.ErrDiv0)} }, 0, oper.ErrDiv0, true},
		{"wrong arity", "add", func() []*oper.Value { return []*oper.Value{oper.Number(1)} }, 0, oper.ErrValue, true},
		{"fraction to i32", "twice", func() []*oper.Value { return []*oper.Value{oper.Number(1.5)} }, 0, oper.ErrNum, true},
		{"i32 overflow", "twice", func() []*oper.Value { return []*oper.Value{oper.Number(1 << 40)} }, 0, oper.ErrNum, true},
		{"trap", "trap", func() []*oper.Value { return nil }, 0, oper.ErrValue, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, m, tt.fn, tt.args()...)
			defer res.Free()
			if tt.fail {
				testutil.AssertErrorValue(t, tt.code, res)
				return
			}
			f, ok := res.Float()
			require.True(t, ok, res.String())
			assert.Equal(t, tt.num, f)
		})
	}
}

func TestHandler_Unknown(t *testing.T) {
	m := load(t)
	_, ok := m.Handler("missing")
	assert.False(t, ok)
}

func TestOptions_Registry(t *testing.T) {
	testutil.CheckLeaks(t)
	m := load(t, wasmudf.WithPrefix("WASM."))

	reg, err := udf.NewRegistry(m.Options()...)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.True(t, reg.Has("wasm.ADD"))

	a, b := oper.Number(40), oper.Number(2)
	res := reg.Invoke(context.Background(), "WASM.add", []*oper.Value{a, b})
	a.Free()
	b.Free()
	defer res.Free()
	testutil.AssertNumber(t, 42, res)
}
