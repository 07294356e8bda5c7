package manifest_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-xll/manifest"
)

func TestSchema(t *testing.T) {
	data, err := manifest.Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "functions")
	assert.Contains(t, props, "encoding")
	assert.Contains(t, schema["required"], "name")
	assert.Contains(t, schema["required"], "functions")
}

func TestValidateDocument(t *testing.T) {
	for _, tt := range []struct {
		file   string
		format manifest.Format
	}{
		{"testdata/math.yaml", manifest.FormatYAML},
		{"testdata/math.toml", manifest.FormatTOML},
		{"testdata/math.cue", manifest.FormatCUE},
	} {
		t.Run(string(tt.format), func(t *testing.T) {
			data, err := os.ReadFile(tt.file)
			require.NoError(t, err)
			assert.NoError(t, manifest.ValidateDocument(data, tt.format))
		})
	}
}

func TestValidateDocument_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "name: x\nfunctions: []\ncolour: red\n"},
		{"missing functions", "name: x\n"},
		{"wrong type", "name: x\nfunctions: yes\n"},
		{"bad enum", "name: x\nfunctions:\n  - {name: F, signature: Q, type: macro}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manifest.ValidateDocument([]byte(tt.doc), manifest.FormatYAML)
			assert.ErrorContains(t, err, "does not match schema")
		})
	}
}

func TestValidateDocument_CUE(t *testing.T) {
	err := manifest.ValidateDocument([]byte(`name: "x", functions: [{name: "F", signature: "Q", colour: "red"}]`), manifest.FormatCUE)
	assert.ErrorContains(t, err, "does not match schema")

	err = manifest.ValidateDocument([]byte(`name: string, functions: []`), manifest.FormatCUE)
	assert.ErrorContains(t, err, "failed to evaluate CUE manifest")
}
