// Package ipc talks to an external completion server over a byte
// stream using msgpack request/response frames. The protocol is
// id-correlated: every request carries an id and the matching response
// echoes it, so responses to abandoned requests can be skipped.
package ipc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"typeahead/logger"
	"typeahead/pattern"
	"typeahead/types"
)

// CompletionRequest is one request frame.
type CompletionRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
}

// CompletionSuggestion is one candidate in a response frame.
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse is one response frame. Error frames reuse the
// same shape with Err set.
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s,omitempty"`
	Count       int                    `msgpack:"c,omitempty"`
	Err         string                 `msgpack:"e,omitempty"`
}

// Client speaks the completion protocol over one stream. Requests are
// serialized: at most one round trip is on the wire at a time, and a
// caller whose context expires abandons its round trip without
// desyncing the stream (the stale response is skipped by id).
type Client struct {
	mu     sync.Mutex
	enc    *msgpack.Encoder
	dec    *msgpack.Decoder
	nextID atomic.Uint64
}

// NewClient wraps an established stream, typically the stdio of a
// completion server subprocess or a connected socket.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		enc: msgpack.NewEncoder(rw),
		dec: msgpack.NewDecoder(rw),
	}
}

// Complete requests candidates for prefix. The context bounds the
// caller's wait, not the wire exchange.
func (c *Client) Complete(ctx context.Context, prefix string, limit int) ([]CompletionSuggestion, error) {
	type result struct {
		suggestions []CompletionSuggestion
		err         error
	}
	ch := make(chan result, 1)

	id := fmt.Sprintf("req_%d", c.nextID.Add(1))
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		s, err := c.roundTrip(id, prefix, limit)
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		return r.suggestions, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// roundTrip runs one exchange under the client lock. Responses whose
// id does not match belong to abandoned requests and are dropped.
func (c *Client) roundTrip(id, prefix string, limit int) ([]CompletionSuggestion, error) {
	req := CompletionRequest{ID: id, Prefix: prefix, Limit: limit}
	if err := c.enc.Encode(&req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	for {
		var resp CompletionResponse
		if err := c.dec.Decode(&resp); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.ID != id {
			logger.Debug("ipc: skipping stale response %q", resp.ID)
			continue
		}
		if resp.Err != "" {
			return nil, fmt.Errorf("completion server: %s", resp.Err)
		}
		return resp.Suggestions, nil
	}
}

// FetchFunc adapts the client into a pattern fetch function. trimPrefix
// is stripped from the matched text before the request and restored on
// the candidates.
func (c *Client) FetchFunc(limit int, trimPrefix string) pattern.FetchFunc {
	return func(ctx context.Context, matched string) ([]types.Item, error) {
		query := strings.TrimPrefix(matched, trimPrefix)
		suggestions, err := c.Complete(ctx, query, limit)
		if err != nil {
			return nil, err
		}

		items := make([]types.Item, 0, len(suggestions))
		for _, s := range suggestions {
			items = append(items, types.Item{
				ID:   fmt.Sprintf("%d", s.Rank),
				Text: trimPrefix + s.Word,
			})
		}
		return items, nil
	}
}
