package websocket

import "time"

// Event types pushed to the subscribers of a dataset session
const (
	TypeConnection = "connection"

	EventUploaded = "dataset:uploaded"
	EventCleaned  = "dataset:cleaned"
	EventReverted = "dataset:reverted"
	EventSelected = "dataset:selected"
	EventChart    = "dataset:chart"
	EventExported = "dataset:exported"
	EventDeleted  = "dataset:deleted"
	EventExpired  = "dataset:expired"
)

// Message is the JSON envelope of every frame the hub sends
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}
