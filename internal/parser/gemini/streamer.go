package gemini

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
	apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Streamer implements port.ChunkStreamer using Google's Gemini API in
// server-sent-events mode.
type Streamer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewStreamer creates a Gemini-based chunk streamer.
func NewStreamer(cfg *config.ParserProviderConfig) *Streamer {
	return newStreamer(cfg, "")
}

// NewStreamerWithEndpoint creates a streamer pointing at a custom API endpoint (for testing).
func NewStreamerWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Streamer {
	return newStreamer(cfg, endpoint)
}

func newStreamer(cfg *config.ParserProviderConfig, endpoint string) *Streamer {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse", apiBaseURL, model)
	}
	return &Streamer{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// geminiStreamChunk models one SSE data payload from the Gemini API.
type geminiStreamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
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
			"contents": []map[string]interface{}{
				{
					"role": "user",
					"parts": []map[string]interface{}{
						{"text": streamReq.Prompt},
					},
				},
			},
			"generationConfig": map[string]interface{}{
				"responseMimeType": "application/json",
				"maxOutputTokens":  16384,
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
		req.Header.Set("x-goog-api-key", s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			errc <- fmt.Errorf("calling gemini API: %w", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
				errc <- parser.NewRateLimitError("gemini", baseErr, retryAfter)
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
			if data == "" || data == "[DONE]" {
				continue
			}

			var chunk geminiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				errc <- fmt.Errorf("gemini API error: %s", chunk.Error.Message)
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			for _, part := range chunk.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case content <- part.Text:
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
