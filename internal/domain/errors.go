package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("input text is empty")
	ErrTextTooLarge      = errors.New("input text exceeds maximum allowed size")
	ErrStreamInterrupted = errors.New("response stream interrupted before completion")
	ErrProviderFailed    = errors.New("all parser providers failed")
)

// ParseFailure is the terminal, classified failure of a parse request.
// Kind selects which context fields are populated: RawText for parse
// and unexpected failures, FieldPath for schema failures.
type ParseFailure struct {
	Kind      FailureKind
	Message   string
	RawText   string
	FieldPath string
}

func (e *ParseFailure) Error() string {
	switch e.Kind {
	case FailureKindSchema:
		return fmt.Sprintf("schema validation error at %s: %s", e.FieldPath, e.Message)
	case FailureKindParse:
		return fmt.Sprintf("JSON decode error: %s", e.Message)
	default:
		return fmt.Sprintf("unexpected error: %s", e.Message)
	}
}

// NewParseFailure creates a ParseFailure carrying the raw response text.
func NewParseFailure(kind FailureKind, message, rawText string) *ParseFailure {
	return &ParseFailure{Kind: kind, Message: message, RawText: rawText}
}

// NewSchemaFailure creates a schema-kind ParseFailure carrying the
// instance path of the violating value (e.g. "/0/date").
func NewSchemaFailure(message, fieldPath string) *ParseFailure {
	return &ParseFailure{Kind: FailureKindSchema, Message: message, FieldPath: fieldPath}
}
