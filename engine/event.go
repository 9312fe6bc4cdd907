package engine

import "typeahead/types"

// EventType identifies an internal engine event.
type EventType string

const (
	// EventFrame fires when the frame timer elapses; the pending
	// scheduled action is applied.
	EventFrame EventType = "frame"
	// EventFetchReady carries a successful fetch result.
	EventFetchReady EventType = "fetch_ready"
	// EventFetchError carries a failed fetch result.
	EventFetchError EventType = "fetch_error"
)

// Event is one message on the engine's internal loop.
type Event struct {
	Type EventType
	Data any
}

// fetchResult is the payload of EventFetchReady / EventFetchError. The
// generation stamps which match cycle issued the fetch; results from
// superseded generations are discarded.
type fetchResult struct {
	gen   uint64
	items []types.Item
	err   error
}
