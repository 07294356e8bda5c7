package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "manifest.schema.json"

// Schema returns the JSON schema (Draft 2020-12) of a manifest document.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		Anonymous:      true,
	}
	schema := reflector.Reflect(&Manifest{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*santhosh.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add manifest schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// ValidateDocument checks a raw manifest against Schema without decoding it
// into a Manifest. Editors and CI use it to report structural errors such as
// misspelled keys.
func ValidateDocument(data []byte, format Format) error {
	var doc map[string]any
	var raw []byte
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatCUE:
		if raw, err = cueJSON(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported manifest format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s manifest: %w", format, err)
	}

	// Normalise to the types encoding/json produces.
	if raw == nil {
		if raw, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("failed to normalise manifest: %w", err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to normalise manifest: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}
