// Package testutil provides common test utilities and assertions for SDK tests
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/oper"
)

// Baseline captures the allocation counters at a point in time.
type Baseline struct {
	live    int64
	buffers int
	bytes   int
}

// TakeBaseline records the current Value and buffer counts.
func TakeBaseline() Baseline {
	count, bytes := abi.Stats()
	return Baseline{live: oper.Live(), buffers: count, bytes: bytes}
}

// AssertNoLeaks asserts that every Value and buffer created since b has been
// freed.
func AssertNoLeaks(t *testing.T, b Baseline, msgAndArgs ...interface{}) {
	t.Helper()
	count, bytes := abi.Stats()
	assert.Equal(t, b.live, oper.Live(), append([]interface{}{"live Values leaked"}, msgAndArgs...)...)
	assert.Equal(t, b.buffers, count, "plugin buffers leaked")
	assert.Equal(t, b.bytes, bytes, "plugin buffer bytes leaked")
}

// CheckLeaks takes a baseline and registers a cleanup asserting no leaks
// when the test ends.
func CheckLeaks(t *testing.T) {
	t.Helper()
	b := TakeBaseline()
	t.Cleanup(func() {
		AssertNoLeaks(t, b)
	})
}

// RequireKind fails the test immediately if v is not of kind k.
func RequireKind(t *testing.T, k oper.Kind, v *oper.Value, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, v, msgAndArgs...)
	require.Equal(t, k.String(), v.KindName(), msgAndArgs...)
}

// AssertErrorValue asserts that v is an Err Value carrying code.
func AssertErrorValue(t *testing.T, code oper.ErrorCode, v *oper.Value, msgAndArgs ...interface{}) {
	t.Helper()
	got, ok := v.ErrCode()
	if assert.True(t, ok, "expected Err value, got %s", v) {
		assert.Equal(t, code, got, msgAndArgs...)
	}
}

// AssertNumber asserts that v is a Num Value equal to want.
func AssertNumber(t *testing.T, want float64, v *oper.Value, msgAndArgs ...interface{}) {
	t.Helper()
	got, ok := v.Num()
	if assert.True(t, ok, "expected Num value, got %s", v) {
		assert.InDelta(t, want, got, 1e-9, msgAndArgs...)
	}
}
