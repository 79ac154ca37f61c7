package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipCreekGroup/email-parser/internal/port"
)

// scriptedStreamer fails immediately, fails after one chunk, or
// succeeds, depending on its fields.
type scriptedStreamer struct {
	chunks   []string
	err      error
	errFirst bool // deliver err before any chunk
	calls    int
}

func (s *scriptedStreamer) Stream(ctx context.Context, req port.StreamRequest) (<-chan string, <-chan error) {
	s.calls++
	content := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(content)
		if s.errFirst {
			errc <- s.err
			return
		}
		for _, c := range s.chunks {
			select {
			case content <- c:
			case <-ctx.Done():
				return
			}
		}
		if s.err != nil {
			errc <- s.err
		}
	}()
	return content, errc
}

func collect(content <-chan string, errc <-chan error) ([]string, error) {
	var got []string
	for c := range content {
		got = append(got, c)
	}
	select {
	case err := <-errc:
		return got, err
	default:
		return got, nil
	}
}

func TestFallbackStreamer_PrimarySucceeds(t *testing.T) {
	primary := &scriptedStreamer{chunks: []string{"[", "]"}}
	secondary := &scriptedStreamer{chunks: []string{"unused"}}
	f := NewFallbackStreamer([]port.ChunkStreamer{primary, secondary}, []string{"gemini", "openai"})

	got, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[", "]"}, got)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackStreamer_FailsOverBeforeFirstChunk(t *testing.T) {
	primary := &scriptedStreamer{err: errors.New("boom"), errFirst: true}
	secondary := &scriptedStreamer{chunks: []string{"[]"}}
	f := NewFallbackStreamer([]port.ChunkStreamer{primary, secondary}, []string{"gemini", "openai"})

	got, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[]"}, got)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackStreamer_NoFailoverAfterDelivery(t *testing.T) {
	primary := &scriptedStreamer{chunks: []string{"["}, err: errors.New("mid-stream failure")}
	secondary := &scriptedStreamer{chunks: []string{"unused"}}
	f := NewFallbackStreamer([]port.ChunkStreamer{primary, secondary}, []string{"gemini", "openai"})

	got, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.Error(t, err)
	assert.Equal(t, []string{"["}, got)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackStreamer_RateLimitOpensCircuit(t *testing.T) {
	primary := &scriptedStreamer{
		err:      NewRateLimitError("gemini", errors.New("429"), 60),
		errFirst: true,
	}
	secondary := &scriptedStreamer{chunks: []string{"[]"}}
	f := NewFallbackStreamer([]port.ChunkStreamer{primary, secondary}, []string{"gemini", "openai"})

	// First request trips the primary's circuit.
	_, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)

	// Second request skips the primary entirely.
	got, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[]"}, got)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, secondary.calls)
}

func TestFallbackStreamer_AllRateLimited(t *testing.T) {
	primary := &scriptedStreamer{
		err:      NewRateLimitError("gemini", errors.New("429"), 60),
		errFirst: true,
	}
	secondary := &scriptedStreamer{
		err:      NewRateLimitError("openai", errors.New("429"), 30),
		errFirst: true,
	}
	f := NewFallbackStreamer([]port.ChunkStreamer{primary, secondary}, []string{"gemini", "openai"})

	_, err := collect(f.Stream(context.Background(), port.StreamRequest{Prompt: "p"}))
	require.Error(t, err)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
}
