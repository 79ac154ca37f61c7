package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ShipCreekGroup/email-parser/internal/config"
	"github.com/ShipCreekGroup/email-parser/internal/parser"
	"github.com/ShipCreekGroup/email-parser/internal/port"
)

const (
	apiURL = "https://api.openai.com/v1/chat/completions"
)

// Streamer implements port.ChunkStreamer using the OpenAI Chat
// Completions API with stream enabled.
type Streamer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewStreamer creates an OpenAI-based chunk streamer from a provider config.
func NewStreamer(cfg *config.ParserProviderConfig) *Streamer {
	return newStreamer(cfg, apiURL)
}

// NewStreamerWithEndpoint creates a streamer pointing at a custom API endpoint (for testing).
func NewStreamerWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Streamer {
	return newStreamer(cfg, endpoint)
}

func newStreamer(cfg *config.ParserProviderConfig, endpoint string) *Streamer {
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Streamer{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// streamChunk models one SSE data payload from the chat completions stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *Streamer) Stream(ctx context.Context, streamReq port.StreamRequest) (<-chan string, <-chan error) {
	content := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(content)

		reqBody := map[string]interface{}{
			"model":                 s.model,
			"max_completion_tokens": 16384,
			"stream":                true,
			"messages": []map[string]interface{}{
				{
					"role":    "user",
					"content": streamReq.Prompt,
				},
			},
			"response_format": map[string]interface{}{
				"type": "json_object",
			},
		}

		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			errc <- fmt.Errorf("marshaling request: %w", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			errc <- fmt.Errorf("creating request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			errc <- fmt.Errorf("calling openai API: %w", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
				errc <- parser.NewRateLimitError("openai", baseErr, retryAfter)
				return
			}
			errc <- baseErr
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case content <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("reading response stream: %w", err)
		}
	}()

	return content, errc
}
