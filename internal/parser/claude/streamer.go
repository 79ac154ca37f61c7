package claude

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
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Streamer implements port.ChunkStreamer using the Anthropic Messages
// API with streaming enabled.
type Streamer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewStreamer creates a Claude-based chunk streamer from a provider config.
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
		model = "claude-sonnet-4-20250514"
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

// streamEvent models the SSE payloads of the messages stream. Only
// content_block_delta events carry response text.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Streamer) Stream(ctx context.Context, streamReq port.StreamRequest) (<-chan string, <-chan error) {
	content := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(content)

		reqBody := map[string]interface{}{
			"model":      s.model,
			"max_tokens": 16384,
			"stream":     true,
			"messages": []map[string]interface{}{
				{
					"role":    "user",
					"content": streamReq.Prompt,
				},
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
		req.Header.Set("x-api-key", s.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, err := s.client.Do(req)
		if err != nil {
			errc <- fmt.Errorf("calling anthropic API: %w", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
				errc <- parser.NewRateLimitError("claude", baseErr, retryAfter)
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

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}
			switch event.Type {
			case "error":
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				errc <- fmt.Errorf("anthropic API error: %s", msg)
				return
			case "message_stop":
				return
			case "content_block_delta":
				if event.Delta.Text == "" {
					continue
				}
				select {
				case content <- event.Delta.Text:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("reading response stream: %w", err)
		}
	}()

	return content, errc
}
