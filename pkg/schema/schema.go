// Package schema validates the opaque metadata carried by inbound and outbound
// orders against a JSON schema.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed metadata.schema.json
var defaultMetadataSchema []byte

const schemaURL = "mem://warehouse-core/metadata.schema.json"

// ValidationFailure lists the offending locations of an invalid document,
// keyed by JSON pointer
type ValidationFailure struct {
	Fields map[string]string
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("metadata does not match schema: %d violation(s)", len(f.Fields))
}

// Validator validates metadata documents
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaJSON
func NewValidator(schemaJSON []byte) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// NewDefaultValidator compiles the built-in metadata schema
func NewDefaultValidator() *Validator {
	v, err := NewValidator(defaultMetadataSchema)
	if err != nil {
		panic(err)
	}
	return v
}

// LoadValidator reads a schema from path, or uses the built-in one when path is empty
func LoadValidator(path string) (*Validator, error) {
	if path == "" {
		return NewDefaultValidator(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return NewValidator(data)
}

// Validate checks metadata. A nil map is valid.
func (v *Validator) Validate(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}
	// round trip through JSON so numbers and nested values have the types the validator expects
	raw, err := json.Marshal(metadata)
	if err != nil {
		return &ValidationFailure{Fields: map[string]string{"": "metadata is not representable as JSON"}}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	fields := make(map[string]string)
	for _, unit := range verr.BasicOutput().Errors {
		if unit.Error == nil {
			continue
		}
		fields[unit.InstanceLocation] = unit.Error.String()
	}
	if len(fields) == 0 {
		fields[""] = verr.Error()
	}
	return &ValidationFailure{Fields: fields}
}
