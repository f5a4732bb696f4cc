package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a raw config document against the embedded schema.
// TOML and YAML documents are normalised through JSON first so the
// validator sees JSON types only.
func validateSchema(data []byte, format string) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	raw, err := decodeRaw(data, format)
	if err != nil {
		return fmt.Errorf("decode %s: %w", strings.ToUpper(format), err)
	}
	normalised, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalise config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(normalised, &doc); err != nil {
		return fmt.Errorf("normalise config: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
