package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipCreekGroup/email-parser/internal/config"
	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/port"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
)

const oneRecordDoc = `[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b"}]`

// fakeStreamer replays canned fragments, optionally failing afterwards.
type fakeStreamer struct {
	chunks []string
	err    error
}

func (f *fakeStreamer) Stream(ctx context.Context, req port.StreamRequest) (<-chan string, <-chan error) {
	content := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(content)
		for _, c := range f.chunks {
			select {
			case content <- c:
			case <-ctx.Done():
				return
			}
		}
		if f.err != nil {
			errc <- f.err
		}
	}()
	return content, errc
}

type countingSink struct {
	counts   []int
	failures []*domain.ParseFailure
}

func (s *countingSink) ReportProgress(emails []domain.Email, count int) {
	s.counts = append(s.counts, count)
}

func (s *countingSink) ReportFailure(f *domain.ParseFailure) {
	s.failures = append(s.failures, f)
}

func newTestService(t *testing.T, streamer port.ChunkStreamer) ParseService {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	return NewParseService(streamer, v, config.LimitsConfig{MaxTextBytes: 1024}, "test-model")
}

func splitIntoChunks(doc string, size int) []string {
	var chunks []string
	for i := 0; i < len(doc); i += size {
		end := i + size
		if end > len(doc) {
			end = len(doc)
		}
		chunks = append(chunks, doc[i:end])
	}
	return chunks
}

func TestParseText_Success(t *testing.T) {
	svc := newTestService(t, &fakeStreamer{chunks: splitIntoChunks(oneRecordDoc, 7)})
	sink := &countingSink{}

	result, err := svc.ParseText(context.Background(), "some pasted text", sink)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "a", result.Emails[0].Name)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, []int{1}, sink.counts)
	assert.Empty(t, sink.failures)
}

func TestParseText_EmptyInput(t *testing.T) {
	svc := newTestService(t, &fakeStreamer{})
	_, err := svc.ParseText(context.Background(), "", port.DiscardSink{})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestParseText_TextTooLarge(t *testing.T) {
	svc := newTestService(t, &fakeStreamer{})
	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'x'
	}
	_, err := svc.ParseText(context.Background(), string(big), port.DiscardSink{})
	assert.ErrorIs(t, err, domain.ErrTextTooLarge)
}

func TestParseText_InterruptedStreamSkipsFinalValidation(t *testing.T) {
	// The truncated buffer would fail final validation loudly; an
	// interrupted stream must instead surface the stream error and
	// leave already-reported progress standing.
	streamer := &fakeStreamer{
		chunks: []string{oneRecordDoc[:len(oneRecordDoc)-1], ""},
		err:    errors.New("connection reset"),
	}
	svc := newTestService(t, streamer)
	sink := &countingSink{}

	_, err := svc.ParseText(context.Background(), "text", sink)
	require.ErrorIs(t, err, domain.ErrStreamInterrupted)
	assert.Equal(t, []int{1}, sink.counts)
	assert.Empty(t, sink.failures)
}

func TestParseText_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A streamer that never produces anything; cancellation must win
	// and final validation of the empty buffer must not run.
	svc := newTestService(t, &fakeStreamer{chunks: nil, err: nil})
	_, err := svc.ParseText(ctx, "text", port.DiscardSink{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseText_TerminalSchemaFailure(t *testing.T) {
	doc := `[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b","date":"2024-13-40"}]`
	svc := newTestService(t, &fakeStreamer{chunks: splitIntoChunks(doc, 11)})
	sink := &countingSink{}

	_, err := svc.ParseText(context.Background(), "text", sink)
	var pf *domain.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.FailureKindSchema, pf.Kind)
	require.Len(t, sink.failures, 1)
}

func TestParseText_TerminalParseFailure(t *testing.T) {
	svc := newTestService(t, &fakeStreamer{chunks: []string{"not json at all"}})
	sink := &countingSink{}

	_, err := svc.ParseText(context.Background(), "text", sink)
	var pf *domain.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.FailureKindParse, pf.Kind)
}
