package parser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShipCreekGroup/email-parser/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackStreamer tries providers in order, skipping those with open
// circuits. It implements port.ChunkStreamer. Failover is only possible
// before a provider has delivered its first fragment: a stream that
// already yielded text cannot be restarted, so later errors propagate
// to the consumer instead.
type FallbackStreamer struct {
	streamers []port.ChunkStreamer
	circuits  []*circuitState
	names     []string
}

// NewFallbackStreamer creates a FallbackStreamer from an ordered list
// of streamers and their names.
func NewFallbackStreamer(streamers []port.ChunkStreamer, names []string) *FallbackStreamer {
	circuits := make([]*circuitState, len(streamers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackStreamer{
		streamers: streamers,
		circuits:  circuits,
		names:     names,
	}
}

func (f *FallbackStreamer) Stream(ctx context.Context, req port.StreamRequest) (<-chan string, <-chan error) {
	content := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(content)

		var lastErr error
		var earliestReset time.Time
		allRateLimited := true

		for i, s := range f.streamers {
			if resetAt, open := f.circuits[i].isOpenWithReset(time.Now()); open {
				log.Printf("parser.FallbackStreamer: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
				if earliestReset.IsZero() || resetAt.Before(earliestReset) {
					earliestReset = resetAt
				}
				continue
			}

			delivered, err := relay(ctx, s, req, content)
			if err == nil {
				return
			}
			log.Printf("parser.FallbackStreamer: %s failed: %v", f.names[i], err)
			lastErr = err

			if delivered || ctx.Err() != nil {
				errc <- err
				return
			}

			var rlErr *RateLimitError
			if errors.As(err, &rlErr) {
				resetAt := time.Now().Add(rlErr.RetryAfter)
				f.circuits[i].open(resetAt)
				if earliestReset.IsZero() || resetAt.Before(earliestReset) {
					earliestReset = resetAt
				}
			} else {
				allRateLimited = false
			}
		}

		if lastErr == nil || allRateLimited {
			retryAfter := time.Until(earliestReset)
			if retryAfter < 0 {
				retryAfter = time.Second
			}
			errc <- NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
			return
		}
		errc <- fmt.Errorf("all providers failed: %w", lastErr)
	}()

	return content, errc
}

// relay pipes one provider's stream to out. It reports whether any
// fragment was forwarded before the stream ended or failed.
func relay(ctx context.Context, s port.ChunkStreamer, req port.StreamRequest, out chan<- string) (bool, error) {
	in, inErr := s.Stream(ctx, req)
	delivered := false
	for {
		select {
		case chunk, ok := <-in:
			if !ok {
				select {
				case err := <-inErr:
					return delivered, err
				default:
					return delivered, nil
				}
			}
			select {
			case out <- chunk:
				delivered = true
			case <-ctx.Done():
				return delivered, ctx.Err()
			}
		case err := <-inErr:
			return delivered, err
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}
}
