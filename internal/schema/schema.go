// Package schema holds the wire-format contract for extracted email
// records: a JSON array of objects with five required string fields and
// an optional yyyy-mm-dd date. The strict variant is the terminal
// contract; the relaxed variant (same shape, nothing required) accepts
// objects whose later fields have not streamed in yet.
package schema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmailSchemaJSON is the canonical strict schema. The relaxed variant is
// derived from this document; there is no second hand-written copy.
const EmailSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "name": {
        "type": "string",
        "description": "A short unique name that identifies the email. Either supplied directly, or derived from the subject or content."
      },
      "sender": {
        "type": "string",
        "description": "The sender's name."
      },
      "subject": {
        "type": "string",
        "description": "The email subject line"
      },
      "preview": {
        "type": "string",
        "description": "The preview text that would appear in an email client."
      },
      "body": {
        "type": "string",
        "description": "The full email content with line breaks preserved."
      },
      "date": {
        "type": "string",
        "description": "The email date in yyyy-mm-dd format (optional).",
        "pattern": "^\\d{4}-\\d{2}-\\d{2}$",
        "format": "date"
      }
    },
    "required": ["name", "sender", "subject", "preview", "body"],
    "additionalProperties": false
  }
}`

const (
	strictResource  = "emails-strict.json"
	relaxedResource = "emails-relaxed.json"
)

// ValidationError is a single schema violation with the instance path of
// the offending value (e.g. "/0/date").
type ValidationError struct {
	InstancePath string
	Message      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("value at %s: %s", e.InstancePath, e.Message)
}

// Validator holds the compiled strict and relaxed email schemas.
type Validator struct {
	strict  *jsonschema.Schema
	relaxed *jsonschema.Schema
	printer *message.Printer
}

// New compiles both schema variants from EmailSchemaJSON.
func New() (*Validator, error) {
	strictDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(EmailSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decoding email schema: %w", err)
	}

	// Decode a second, independent copy before clearing the required
	// list so the two documents share no sub-structures.
	relaxedDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(EmailSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decoding email schema: %w", err)
	}
	items, ok := relaxedDoc.(map[string]any)["items"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("email schema has no items object")
	}
	items["required"] = []any{}

	c := jsonschema.NewCompiler()
	// The pattern alone admits out-of-range dates like 2024-13-40; the
	// date format assertion closes that gap.
	c.AssertFormat()
	if err := c.AddResource(strictResource, strictDoc); err != nil {
		return nil, fmt.Errorf("adding strict schema resource: %w", err)
	}
	if err := c.AddResource(relaxedResource, relaxedDoc); err != nil {
		return nil, fmt.Errorf("adding relaxed schema resource: %w", err)
	}

	strict, err := c.Compile(strictResource)
	if err != nil {
		return nil, fmt.Errorf("compiling strict schema: %w", err)
	}
	relaxed, err := c.Compile(relaxedResource)
	if err != nil {
		return nil, fmt.Errorf("compiling relaxed schema: %w", err)
	}

	return &Validator{
		strict:  strict,
		relaxed: relaxed,
		printer: message.NewPrinter(language.English),
	}, nil
}

// ValidateStrict validates a decoded JSON document against the full
// schema. Violations come back as *ValidationError.
func (v *Validator) ValidateStrict(doc any) error {
	return v.convert(v.strict.Validate(doc))
}

// ValidateRelaxed validates a decoded JSON document against the variant
// with no required fields.
func (v *Validator) ValidateRelaxed(doc any) error {
	return v.convert(v.relaxed.Validate(doc))
}

func (v *Validator) convert(err error) error {
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &ValidationError{
		InstancePath: "/" + strings.Join(leaf.InstanceLocation, "/"),
		Message:      leaf.ErrorKind.LocalizedString(v.printer),
	}
}
