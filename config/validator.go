package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		raw, err := SchemaJSON()
		if err != nil {
			compileErr = fmt.Errorf("failed to encode schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(SchemaID, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(SchemaID)
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks a parsed configuration document against the
// configuration schema.
func ValidateDocument(doc map[string]interface{}) error {
	schema, err := compiled()
	if err != nil {
		return err
	}

	// Normalize YAML/TOML values into the JSON data model the validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var normalized interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&normalized); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return err
	}
	return nil
}
