package oper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-xll/internal/testutil"
	"github.com/reglet-dev/reglet-xll/oper"
)

func TestErrorText(t *testing.T) {
	testutil.CheckLeaks(t)

	tests := []struct {
		code oper.ErrorCode
		raw  int32
		want string
	}{
		{oper.ErrNull, 0, "#NULL!"},
		{oper.ErrDiv0, 7, "#DIV/0!"},
		{oper.ErrValue, 15, "#VALUE!"},
		{oper.ErrRef, 23, "#REF!"},
		{oper.ErrName, 29, "#NAME?"},
		{oper.ErrNum, 36, "#NUM!"},
		{oper.ErrNA, 42, "#N/A"},
		{oper.ErrGettingData, 43, "#GETTING_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			v := oper.Error(tt.code)
			defer v.Free()

			assert.Equal(t, int32(tt.code), tt.raw)
			assert.Equal(t, tt.want, v.ErrorText())
			testutil.AssertErrorValue(t, tt.code, v)

			parsed, ok := oper.ParseErrorCode(tt.want)
			require.True(t, ok)
			assert.Equal(t, tt.code, parsed)
		})
	}
	assert.Len(t, oper.ErrorCodes, len(tests))
}

func TestError_MissingIsNotAnError(t *testing.T) {
	testutil.CheckLeaks(t)

	v := oper.Error(oper.ErrMissing)
	defer v.Free()

	assert.Equal(t, "Missing", v.KindName())
	assert.False(t, v.IsError())
	assert.Equal(t, "", v.ErrorText())
	assert.False(t, oper.ErrMissing.Valid())
}

func TestErrorText_OtherKinds(t *testing.T) {
	testutil.CheckLeaks(t)

	for _, v := range []*oper.Value{oper.Number(7), oper.Text("#N/A"), oper.Nil()} {
		assert.Equal(t, "", v.ErrorText(), v.String())
		_, ok := v.ErrCode()
		assert.False(t, ok)
		v.Free()
	}
}

func TestParseErrorCode_Unknown(t *testing.T) {
	_, ok := oper.ParseErrorCode("#BOGUS!")
	assert.False(t, ok)
	assert.False(t, oper.ErrorCode(1).Valid())
}
