// Package httpapi fetches completion candidates from a remote HTTP
// service. The request body is JSON compressed with brotli; responses
// are plain JSON. A Client also tracks acceptance metrics so the
// service can measure suggestion quality.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"typeahead/editor"
	"typeahead/pattern"
	"typeahead/types"
)

// CompletionRequest is the wire format for a candidate request.
type CompletionRequest struct {
	Query       string       `json:"query"`
	Limit       int          `json:"limit"`
	RecentEdits []EditRecord `json:"recent_edits,omitempty"`
}

// EditRecord carries one recent programmatic edit as change context for
// the service's ranking.
type EditRecord struct {
	Original string `json:"original"`
	Updated  string `json:"updated"`
}

// CompletionResponse is the wire format of a candidate response.
type CompletionResponse struct {
	RequestID string          `json:"request_id"`
	Items     []CompletionRow `json:"items"`
}

// CompletionRow is one candidate on the wire.
type CompletionRow struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

const defaultTimeout = 10 * time.Second

// Client talks to one completion endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	metricsURL string
	authToken  string
}

// NewClient creates a client for the given completion endpoint.
// metricsURL may be empty to disable acceptance tracking. A zero
// timeout selects the default.
func NewClient(url, metricsURL, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		metricsURL: metricsURL,
		authToken:  authToken,
	}
}

// Complete requests candidates for the query. The request body is
// brotli-compressed JSON (quality 1 for speed).
func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var compressed bytes.Buffer
	bw := brotli.NewWriterLevel(&compressed, 1)
	if _, err := bw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, &compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "br")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp CompletionResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &apiResp, nil
}

// maxEditContext bounds how many history entries ride along with a
// request.
const maxEditContext = 8

// FetchFunc adapts the client into a pattern fetch function. limit
// caps the number of candidates; history, when non-nil, contributes
// the most recent edits as ranking context.
func (c *Client) FetchFunc(limit int, history *editor.History) pattern.FetchFunc {
	return func(ctx context.Context, matched string) ([]types.Item, error) {
		req := &CompletionRequest{Query: matched, Limit: limit}
		if history != nil {
			entries := history.Entries()
			if len(entries) > maxEditContext {
				entries = entries[len(entries)-maxEditContext:]
			}
			for _, e := range entries {
				req.RecentEdits = append(req.RecentEdits, EditRecord{
					Original: e.Original,
					Updated:  e.Updated,
				})
			}
		}

		resp, err := c.Complete(ctx, req)
		if err != nil {
			return nil, err
		}

		items := make([]types.Item, 0, len(resp.Items))
		for _, row := range resp.Items {
			items = append(items, types.Item{ID: row.ID, Text: row.Text, Title: row.Title})
		}
		return items, nil
	}
}
