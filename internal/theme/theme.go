// Package theme validates theme family documents against the embedded
// theme family schema.
package theme

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tailscale/hujson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://extpack.dev/schemas/theme_family.json"

//go:embed theme_family.schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal theme schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add theme schema: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile theme schema: %w", err)
	}
	return schema, nil
})

var printer = message.NewPrinter(language.English)

// ValidationError carries every schema violation found in a theme document
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("theme does not match schema:\n  %s", strings.Join(e.Errors, "\n  "))
}

// Parse decodes a theme document. Comments and trailing commas are accepted.
func Parse(data []byte) (any, error) {
	value, err := hujson.Parse(data)
	if err != nil {
		return nil, err
	}
	value.Standardize()
	return jsonschema.UnmarshalJSON(bytes.NewReader(value.Pack()))
}

// Validate checks a decoded theme document against the theme family schema
func Validate(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	var diagnostics []string
	collect(verr, &diagnostics)
	return &ValidationError{Errors: diagnostics}
}

// ValidateBytes parses and validates a theme document
func ValidateBytes(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	return Validate(doc)
}

// collect flattens the error tree into one diagnostic per leaf
func collect(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("at %s: %s",
			location(err.InstanceLocation),
			err.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, cause := range err.Causes {
		collect(cause, out)
	}
}

func location(parts []string) string {
	if len(parts) == 0 {
		return "(root)"
	}
	return "/" + strings.Join(parts, "/")
}
