package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShipCreekGroup/email-parser/internal/config"
	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/parser"
	"github.com/ShipCreekGroup/email-parser/internal/port"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
	"github.com/ShipCreekGroup/email-parser/internal/stream"
)

// ParseService defines the text-to-records parsing contract.
type ParseService interface {
	// ParseText streams a model response for the pasted text, feeding
	// partial results to sink as they are recovered, and returns the
	// fully validated record list once the stream completes. On
	// context cancellation or an interrupted stream no final
	// validation happens; the partial results already reported to the
	// sink stand as-is.
	ParseText(ctx context.Context, text string, sink port.ProgressSink) (*domain.ParseResult, error)
}

type parseService struct {
	streamer  port.ChunkStreamer
	validator *schema.Validator
	limits    config.LimitsConfig
	model     string
}

// NewParseService creates a new ParseService implementation.
func NewParseService(
	streamer port.ChunkStreamer,
	validator *schema.Validator,
	limits config.LimitsConfig,
	model string,
) ParseService {
	return &parseService{
		streamer:  streamer,
		validator: validator,
		limits:    limits,
		model:     model,
	}
}

func (s *parseService) ParseText(ctx context.Context, text string, sink port.ProgressSink) (*domain.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	if s.limits.MaxTextBytes > 0 && len(text) > s.limits.MaxTextBytes {
		return nil, domain.ErrTextTooLarge
	}

	prompt := parser.BuildEmailExtractionPrompt(text)
	acc := stream.NewAccumulator(s.validator, sink)

	content, errc := s.streamer.Stream(ctx, port.StreamRequest{Prompt: prompt})

	for {
		select {
		case chunk, ok := <-content:
			if !ok {
				if ctx.Err() != nil {
					// Canceled mid-stream; the buffer is incomplete
					// and must not be finalized.
					return nil, ctx.Err()
				}
				// A pending provider error means the stream was cut
				// short and the buffer must not be finalized either.
				select {
				case err := <-errc:
					log.Printf("service.ParseService: stream failed after %d bytes: %v", acc.BufferLen(), err)
					return nil, fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, err)
				default:
				}
				emails, err := acc.Finalize()
				if err != nil {
					return nil, err
				}
				log.Printf("service.ParseService: parsed %d email(s) from %d bytes of response", len(emails), acc.BufferLen())
				return &domain.ParseResult{Emails: emails, Count: len(emails), Model: s.model}, nil
			}
			acc.Append(chunk)
		case <-ctx.Done():
			log.Printf("service.ParseService: request canceled after %d bytes", acc.BufferLen())
			return nil, ctx.Err()
		}
	}
}
