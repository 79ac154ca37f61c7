// Package stream owns the per-request control loop over a model
// response stream: an append-only buffer, opportunistic recovery of
// partial record lists after every fragment, and a single strict
// validation pass once the stream has completed.
package stream

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/partialjson"
	"github.com/ShipCreekGroup/email-parser/internal/port"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
)

// Accumulator consumes one response stream. It is request-scoped and
// not safe for concurrent use; there is exactly one writer per request.
//
// Progress is emitted only on strict growth of the recovered record
// count, so the counts observed by the sink are monotonically
// non-decreasing until Finalize supersedes them.
type Accumulator struct {
	validator *schema.Validator
	sink      port.ProgressSink

	buf       strings.Builder
	emails    []domain.Email
	completed bool
}

// NewAccumulator creates an Accumulator for a single parse request.
func NewAccumulator(validator *schema.Validator, sink port.ProgressSink) *Accumulator {
	return &Accumulator{validator: validator, sink: sink}
}

// Append adds one stream fragment to the buffer and re-runs partial
// recovery. Every per-fragment parse or validation error is downgraded
// to "no progress"; nothing on this path can abort the stream.
func (a *Accumulator) Append(chunk string) {
	if a.completed {
		return
	}
	a.buf.WriteString(chunk)

	candidate, ok := a.tryPartial()
	if !ok || len(candidate) <= len(a.emails) {
		return
	}
	a.emails = candidate
	a.sink.ReportProgress(candidate, len(candidate))
}

// Partial returns the most recently recovered record list. This is what
// remains visible if the stream is interrupted before completion.
func (a *Accumulator) Partial() []domain.Email {
	return a.emails
}

// BufferLen reports how many bytes of response text have accumulated.
func (a *Accumulator) BufferLen() int {
	return a.buf.Len()
}

func (a *Accumulator) tryPartial() ([]domain.Email, bool) {
	repaired, err := partialjson.Repair(a.buf.String())
	if err != nil {
		return nil, false
	}

	var doc any
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, false
	}
	if err := a.validator.ValidateRelaxed(doc); err != nil {
		return nil, false
	}

	var emails []domain.Email
	if err := json.Unmarshal([]byte(repaired), &emails); err != nil {
		return nil, false
	}
	return emails, true
}

// Finalize runs strict parse + validation on the complete buffer and
// moves the Accumulator to its terminal state. The contract is
// fail-closed: the result is either a fully valid record list or a
// classified *domain.ParseFailure that has been logged and reported to
// the sink. Finalize must not be called on an interrupted stream.
func (a *Accumulator) Finalize() ([]domain.Email, error) {
	a.completed = true
	raw := a.buf.String()

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, a.fail(domain.NewParseFailure(domain.FailureKindParse, err.Error(), raw))
	}

	if err := a.validator.ValidateStrict(doc); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return nil, a.fail(domain.NewSchemaFailure(ve.Message, ve.InstancePath))
		}
		return nil, a.fail(domain.NewParseFailure(domain.FailureKindUnexpected, err.Error(), raw))
	}

	var emails []domain.Email
	if err := json.Unmarshal([]byte(raw), &emails); err != nil {
		return nil, a.fail(domain.NewParseFailure(domain.FailureKindUnexpected, err.Error(), raw))
	}
	return emails, nil
}

func (a *Accumulator) fail(f *domain.ParseFailure) error {
	log.Printf("stream.Accumulator: %v", f)
	a.sink.ReportFailure(f)
	return f
}
