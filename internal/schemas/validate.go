// Package schemas validates JSON payloads against the embedded JSON Schemas.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed json/*.json
var schemaFS embed.FS

// ClientFrame is the schema of frames sent by chat clients.
const ClientFrame = "client_frame.json"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, err := range ve.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Field + ": " + err.Message)
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name  string
	Cause error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Name, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validator checks documents against one compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// Load compiles an embedded schema by file name.
func Load(name string) (*Validator, error) {
	data, err := schemaFS.ReadFile("json/" + name)
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Cause: err}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Cause: err}
	}
	return &Validator{schema: schema}, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(name string) *Validator {
	v, err := Load(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate validates a JSON document, returning a *ValidationError when it does not conform.
func (v *Validator) Validate(doc []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
