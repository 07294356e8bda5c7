package manifest

import (
	"bytes"
	"fmt"
	"text/template"
)

// ParseOption configures Parse and Load.
type ParseOption func(*parseConfig)

type parseConfig struct {
	vars   map[string]any
	strict bool
}

func defaultParseConfig() parseConfig {
	return parseConfig{
		strict: true,
	}
}

// WithVars renders the manifest as a text/template before decoding, with
// vars available as {{.vars.key}}.
func WithVars(vars map[string]any) ParseOption {
	return func(c *parseConfig) {
		c.vars = vars
	}
}

// WithStrictVars enables/disables strict mode for missing keys.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrictVars(enabled bool) ParseOption {
	return func(c *parseConfig) {
		c.strict = enabled
	}
}

func render(raw []byte, vars map[string]any, strict bool) ([]byte, error) {
	tmpl := template.New("manifest")
	if strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"vars": vars}); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}
	return buf.Bytes(), nil
}
