package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"typeahead/logger"
)

const (
	EventShown     = "suggestion_shown"
	EventAccepted  = "suggestion_accepted"
	EventDismissed = "suggestion_dismissed"
)

// MetricsEvent is the wire format for one acceptance metric.
type MetricsEvent struct {
	EventType string `json:"event_type"`
	RequestID string `json:"request_id"`
	ItemID    string `json:"item_id"`
	Query     string `json:"query"`
	Lifespan  *int64 `json:"lifespan_ms,omitempty"`
	DeviceID  string `json:"device_id"`
}

// ShownSuggestion carries what the tracker needs to report about one
// rendered suggestion.
type ShownSuggestion struct {
	RequestID string
	ItemID    string
	Query     string
	ShownAt   time.Time
}

// Tracker sends acceptance metrics to the service, fire and forget.
// Failures are logged and never surface to callers.
type Tracker struct {
	client   *Client
	deviceID string
}

// NewTracker creates a tracker reusing the client's endpoint and auth.
// dataDir persists the anonymous device ID across runs; empty means a
// fresh ID per process.
func NewTracker(client *Client, dataDir string) *Tracker {
	return &Tracker{
		client:   client,
		deviceID: loadOrCreateDeviceID(dataDir),
	}
}

// TrackShown reports that a suggestion was rendered.
func (t *Tracker) TrackShown(s *ShownSuggestion) {
	t.send(&MetricsEvent{
		EventType: EventShown,
		RequestID: s.RequestID,
		ItemID:    s.ItemID,
		Query:     s.Query,
		DeviceID:  t.deviceID,
	})
}

// TrackAccepted reports that a suggestion was accepted.
func (t *Tracker) TrackAccepted(s *ShownSuggestion) {
	t.send(&MetricsEvent{
		EventType: EventAccepted,
		RequestID: s.RequestID,
		ItemID:    s.ItemID,
		Query:     s.Query,
		DeviceID:  t.deviceID,
	})
}

// TrackDismissed reports that a suggestion was cleared without being
// accepted, with how long it was on screen.
func (t *Tracker) TrackDismissed(s *ShownSuggestion) {
	lifespan := time.Since(s.ShownAt).Milliseconds()
	t.send(&MetricsEvent{
		EventType: EventDismissed,
		RequestID: s.RequestID,
		ItemID:    s.ItemID,
		Query:     s.Query,
		Lifespan:  &lifespan,
		DeviceID:  t.deviceID,
	})
}

func (t *Tracker) send(ev *MetricsEvent) {
	if t.client.metricsURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		body, err := json.Marshal(ev)
		if err != nil {
			logger.Debug("metrics: marshal error: %v", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", t.client.metricsURL, bytes.NewReader(body))
		if err != nil {
			logger.Debug("metrics: create request error: %v", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if t.client.authToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+t.client.authToken)
		}

		resp, err := t.client.httpClient.Do(httpReq)
		if err != nil {
			logger.Debug("metrics: send error: %v", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			logger.Debug("metrics: server returned %d for %s", resp.StatusCode, ev.EventType)
		} else {
			logger.Debug("metrics: sent %s (item=%s)", ev.EventType, ev.ItemID)
		}
	}()
}

func loadOrCreateDeviceID(dataDir string) string {
	if dataDir == "" {
		return generateUUID()
	}

	idPath := filepath.Join(dataDir, "device_id")

	data, err := os.ReadFile(idPath)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id
		}
	}

	id := generateUUID()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("metrics: could not create data dir %s: %v", dataDir, err)
		return id
	}
	if err := os.WriteFile(idPath, []byte(id), 0644); err != nil {
		logger.Warn("metrics: could not write device_id: %v", err)
	}
	return id
}

func generateUUID() string {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40 // version 4
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 2
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16])
}
