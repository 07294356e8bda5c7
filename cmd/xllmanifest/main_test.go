package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-xll/internal/testutil"
)

// add(f64, f64) f64
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
}

func writeWasm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, addWasm, 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: xllmanifest")

	code, _, stderr = runCmd(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, stdout, _ := runCmd(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "commands:")
}

func TestRun_Validate(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\ncolour: red\nfunctions: [{name: F, signature: Q}]\n"), 0o600))

	code, stdout, _ := runCmd(t, "validate",
		"../../manifest/testdata/math.yaml",
		"../../manifest/testdata/math.toml",
		"../../manifest/testdata/math.cue",
	)
	assert.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "math.cue: ok")

	code, stdout, stderr := runCmd(t, "validate", "../../manifest/testdata/math.yaml", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "bad.yaml: manifest does not match schema")
	assert.Contains(t, stderr, "1 of 2 manifests invalid")

	code, _, _ = runCmd(t, "validate")
	assert.Equal(t, 2, code)
}

func TestRun_Schema(t *testing.T) {
	code, stdout, _ := runCmd(t, "schema")
	require.Equal(t, 0, code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	assert.Contains(t, schema["properties"], "functions")
}

func TestRun_List(t *testing.T) {
	code, stdout, _ := runCmd(t, "list", "../../manifest/testdata/math.yaml")
	require.Equal(t, 0, code)

	var rows []listing
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, listing{
		Name:      "ADD",
		Procedure: "xAdd",
		Signature: "QQQ$",
		Type:      "function",
		Category:  "Math",
		Args:      []string{"a", "b"},
		Help:      "Adds two numbers",
	}, rows[0])
	assert.Equal(t, "command", rows[2].Type)

	code, _, stderr := runCmd(t, "list", "nope.yaml")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to read manifest")
}

func TestRun_Wasm(t *testing.T) {
	path := writeWasm(t)

	code, stdout, stderr := runCmd(t, "wasm", "-prefix", "WASM.", "-category", "Math", path)
	require.Equal(t, 0, code, stderr)

	var rows []listing
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "WASM.add", rows[0].Name)
	assert.Equal(t, "add", rows[0].Procedure)
	assert.Equal(t, "QQQ", rows[0].Signature)
	assert.Equal(t, "Math", rows[0].Category)

	code, _, _ = runCmd(t, "wasm", "-bogus", path)
	assert.Equal(t, 2, code)
}

func TestRun_Call(t *testing.T) {
	testutil.CheckLeaks(t)
	path := writeWasm(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"numbers", []string{"add", "1.5", "2"}, "3.5"},
		{"case-insensitive name", []string{"ADD", "40", "2"}, "42"},
		{"missing argument", []string{"add", "", "2"}, "2"},
		{"boolean", []string{"add", "TRUE", "1"}, "2"},
		{"text", []string{"add", "x", "1"}, "#VALUE!"},
		{"error token", []string{"add", "#N/A", "1"}, "#N/A"},
		{"unknown function", []string{"sub", "1", "1"}, "#NAME?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCmd(t, append([]string{"call", path}, tt.args...)...)
			require.Equal(t, 0, code, stderr)
			assert.Equal(t, tt.want+"\n", stdout)
		})
	}
}

func TestRun_CallVerbose(t *testing.T) {
	path := writeWasm(t)
	code, _, stderr := runCmd(t, "call", "-v", path, "add", "1", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "registered function")
}

func TestRun_CallErrors(t *testing.T) {
	code, _, _ := runCmd(t, "call", "only-module.wasm")
	assert.Equal(t, 2, code)

	code, _, stderr := runCmd(t, "call", filepath.Join(t.TempDir(), "missing.wasm"), "add")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "missing.wasm")
}

func TestParseArg(t *testing.T) {
	testutil.CheckLeaks(t)

	for _, tt := range []struct {
		in   string
		kind string
	}{
		{"", "Missing"},
		{"3", "Num"},
		{"-1e3", "Num"},
		{"false", "Bool"},
		{"#DIV/0!", "Err"},
		{"hello", "Str"},
	} {
		v := parseArg(tt.in)
		assert.Equal(t, tt.kind, v.KindName(), tt.in)
		v.Free()
	}
}
