package manifest_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/manifest"
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
)

func TestLoad(t *testing.T) {
	for _, file := range []string{"testdata/math.yaml", "testdata/math.toml", "testdata/math.cue"} {
		t.Run(filepath.Ext(file), func(t *testing.T) {
			m, err := manifest.Load(file)
			require.NoError(t, err)

			assert.Equal(t, "math", m.Name)
			assert.Equal(t, "debug", m.Log.Level)
			assert.True(t, m.Log.Source)
			assert.Equal(t, 64<<20, m.MaxBufferBytes)
			require.Len(t, m.Functions, 3)

			defs := m.Definitions()
			assert.Equal(t, udf.Definition{
				Procedure: "xAdd",
				Signature: "QQQ$",
				Name:      "ADD",
				ArgNames:  "a,b",
				MacroType: udf.MacroFunction,
				Category:  "Math",
				Help:      "Adds two numbers",
				ArgHelp:   []string{"first addend", "second addend"},
			}, defs[0])

			assert.Equal(t, "NOW.PRECISE", defs[1].Procedure, "procedure defaults to the name")
			assert.Equal(t, "Time", defs[1].Category)
			assert.Equal(t, udf.MacroCommand, defs[2].MacroType)
			assert.Equal(t, "R", defs[2].Shortcut)
		})
	}
}

func TestFormatOf(t *testing.T) {
	f, err := manifest.FormatOf("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, manifest.FormatYAML, f)

	f, err = manifest.FormatOf("addin.cue")
	require.NoError(t, err)
	assert.Equal(t, manifest.FormatCUE, f)

	_, err = manifest.FormatOf("addin.json")
	assert.ErrorContains(t, err, "unsupported manifest extension")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_UnknownKeys(t *testing.T) {
	_, err := manifest.Parse([]byte("name: x\nfunctionz: []\n"), manifest.FormatYAML)
	assert.ErrorContains(t, err, "functionz")

	_, err = manifest.Parse([]byte("name = \"x\"\nextra = 1\n"), manifest.FormatTOML)
	assert.ErrorContains(t, err, "unknown key \"extra\"")
}

func TestParse_ValidationErrors(t *testing.T) {
	doc := `
name: bad
encoding: no-such-charset
log:
  level: loud
functions:
  - name: ONE
    signature: QQ?
  - name: TWO
    signature: QQ
    args:
      - name: a
      - name: b
  - name: two
    signature: Q
    shortcut: ab
`
	_, err := manifest.Parse([]byte(doc), manifest.FormatYAML)
	var verr *manifest.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)

	fields := map[string]string{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Contains(t, fields["encoding"], "unknown encoding")
	assert.Contains(t, fields["log.level"], "must be one of")
	assert.Contains(t, fields["functions[0].signature"], "invalid type code")
	assert.Equal(t, "signature declares 1 arguments", fields["functions[1].args"])
	assert.Contains(t, fields["functions[2].name"], "duplicate function name")
	assert.Contains(t, fields["functions[2].shortcut"], "at most 1")
	assert.Contains(t, err.Error(), "manifest validation failed:")
}

func TestParse_NoFunctions(t *testing.T) {
	_, err := manifest.Parse([]byte("name: empty\n"), manifest.FormatYAML)
	var verr *manifest.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "functions", verr.Errors[0].Field)
}

func TestParse_Vars(t *testing.T) {
	doc := []byte(`
name: "{{.vars.name}}"
functions:
  - name: "{{.vars.prefix}}.ADD"
    signature: QQQ
`)
	m, err := manifest.Parse(doc, manifest.FormatYAML, manifest.WithVars(map[string]any{
		"name":   "rendered",
		"prefix": "MY",
	}))
	require.NoError(t, err)
	assert.Equal(t, "rendered", m.Name)
	assert.Equal(t, "MY.ADD", m.Functions[0].Name)

	_, err = manifest.Parse(doc, manifest.FormatYAML, manifest.WithVars(map[string]any{"name": "x"}))
	assert.ErrorContains(t, err, "map has no entry for key")
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := manifest.Parse([]byte("{}"), manifest.Format("json"))
	assert.ErrorContains(t, err, "unsupported manifest format")
}

func TestBind(t *testing.T) {
	m, err := manifest.Load("testdata/math.yaml")
	require.NoError(t, err)

	add := udf.Numeric(func(_ context.Context, a []float64) (float64, error) { return a[0] + a[1], nil })
	noop := func(context.Context, []*oper.Value) *oper.Value { return nil }

	_, err = m.Bind(map[string]udf.Handler{"xAdd": add})
	assert.ErrorContains(t, err, "no handler for NOW.PRECISE, RELOAD")

	opts, err := m.Bind(map[string]udf.Handler{"xAdd": add, "NOW.PRECISE": noop, "RELOAD": noop})
	require.NoError(t, err)

	reg, err := udf.NewRegistry(opts...)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADD", "NOW.PRECISE", "RELOAD"}, reg.Names())

	x, y := oper.Number(1), oper.Number(2)
	defer x.Free()
	defer y.Free()
	res := reg.Invoke(context.Background(), "add", []*oper.Value{x, y})
	defer res.Free()
	n, ok := res.Num()
	require.True(t, ok)
	assert.Equal(t, 3.0, n)
}

func TestTextEncoding(t *testing.T) {
	m := &manifest.Manifest{Encoding: "windows-1252"}
	enc, err := m.TextEncoding()
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1252, enc)

	m.Encoding = ""
	enc, err = m.TextEncoding()
	require.NoError(t, err)
	assert.Equal(t, oper.SystemEncoding(), enc)
}

func TestApplyLimits(t *testing.T) {
	t.Cleanup(func() {
		abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations))
	})

	m := &manifest.Manifest{MaxBufferBytes: 64}
	m.ApplyLimits()
	assert.Panics(t, func() { abi.Alloc[byte](65) })
}

func TestParse_CUE(t *testing.T) {
	doc := `
_sig: "QQ"
name: "cue"
functions: [for n in ["ABS", "NEG"] {name: n, signature: _sig}]
`
	m, err := manifest.Parse([]byte(doc), manifest.FormatCUE)
	require.NoError(t, err)
	require.Len(t, m.Functions, 2)
	assert.Equal(t, "NEG", m.Functions[1].Name)
	assert.Equal(t, "QQ", m.Functions[1].Signature)

	_, err = manifest.Parse([]byte(`name: "cue", colour: "red", functions: [{name: "F", signature: "Q"}]`), manifest.FormatCUE)
	assert.ErrorContains(t, err, "unknown field")

	_, err = manifest.Parse([]byte(`name: `), manifest.FormatCUE)
	assert.ErrorContains(t, err, "failed to parse CUE manifest")
}

func TestLog_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := manifest.Log{Level: "warn"}.NewLogger(&buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, _, err = manifest.Log{Level: "loud"}.NewLogger(&buf)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLog_NewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addin.log")
	logger, closer, err := manifest.Log{File: path, Format: "cbor"}.NewLogger(nil)
	require.NoError(t, err)

	logger.Error("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.NotContains(t, string(data), "{\"", "records are CBOR, not JSON")
}

func TestParse_ArgsLimit(t *testing.T) {
	var doc strings.Builder
	doc.WriteString("name: wide\nfunctions:\n  - name: WIDE\n    signature: Q" + strings.Repeat("Q", 246) + "\n    args:\n")
	for i := 0; i < 246; i++ {
		doc.WriteString("      - name: x\n")
	}

	_, err := manifest.Parse([]byte(doc.String()), manifest.FormatYAML)
	var verr *manifest.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "functions[0].args", verr.Errors[0].Field)
	assert.Equal(t, "must have at most 245 entries", verr.Errors[0].Message)
}
