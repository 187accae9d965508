package model

import "time"

// EventType classifies a progress event on the claim stream
type EventType string

const (
	EventNodeStart     EventType = "node_start"
	EventNodeUpdate    EventType = "node_update"
	EventError         EventType = "error"
	EventGraphComplete EventType = "graph_complete"
)

// StreamEvent is one JSON message on the claim progress stream.
// Seq is assigned by the session manager; graph_complete markers are
// synthesized at replay time, carry no seq, and are never buffered.
type StreamEvent struct {
	Type      EventType `json:"type"`
	ClaimID   string    `json:"claim_id"`
	Node      string    `json:"node,omitempty"`
	Seq       uint64    `json:"seq,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp string    `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"` // Mirrors Error for client convenience
}

// EventTimestamp formats the current time the way every stream event carries it
func EventTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
