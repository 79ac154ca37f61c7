package port

import "context"

// StreamRequest carries the data needed to open one model response stream.
type StreamRequest struct {
	Prompt string
}

// ChunkStreamer abstracts an LLM provider that streams its response as
// incremental text fragments. The content channel carries fragments in
// delivery order and is closed on end-of-stream; fragment boundaries
// carry no meaning and never align with JSON token boundaries. At most
// one error is sent on the error channel; after the content channel is
// closed the consumer must check it before treating the stream as
// complete.
type ChunkStreamer interface {
	Stream(ctx context.Context, req StreamRequest) (<-chan string, <-chan error)
}
