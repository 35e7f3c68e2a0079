// Package events contains the WebSocket event contracts pushed to the
// dashboard when an analysis session changes.
package events

import (
	"time"

	"metrolog/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeConnection MessageType = "connection"

	// Session lifecycle
	MessageTypeSessionCreated MessageType = "session:created"
	MessageTypeSessionUpdated MessageType = "session:updated"
	MessageTypeSessionDeleted MessageType = "session:deleted"

	// Registry and groups
	MessageTypeRegistryUpdated MessageType = "registry:updated"
	MessageTypeGroupsUpdated   MessageType = "groups:updated"

	MessageTypeComparisonCompleted MessageType = "comparison:completed"
	MessageTypeSnapshotSaved       MessageType = "snapshot:saved"

	MessageTypeError MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is one event. Messages with a SessionID reach only the
// clients following that session.
type WebSocketMessage struct {
	BaseMessage
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Connection is sent to a client right after it registers.
type Connection struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionUpdated announces a newly loaded measurement table.
type SessionUpdated struct {
	Layout     domain.Layout `json:"layout"`
	Rows       int           `json:"rows"`
	Dimensions int           `json:"dimensions"`
	Orders     []string      `json:"orders"`
	Created    []string      `json:"created"`
}

// Registry change reasons.
const (
	RegistryReasonProfile = "profile"
	RegistryReasonAngular = "angular"
	RegistryReasonImport  = "import"
	RegistryReasonRestore = "restore"
)

// RegistryUpdated announces a registry change.
type RegistryUpdated struct {
	Reason     string   `json:"reason"`
	Dimensions []string `json:"dimensions,omitempty"`
}

// GroupsUpdated carries the full group list after a change.
type GroupsUpdated struct {
	Groups []domain.ProfileGroup `json:"groups"`
}

// ComparisonCompleted summarises a batch comparison.
type ComparisonCompleted struct {
	Compared int      `json:"compared"`
	Flagged  []string `json:"flagged"`
}

// SnapshotSaved reports a stored registry snapshot.
type SnapshotSaved struct {
	Key string `json:"key"`
}

// ErrorMessage is pushed when a background action fails.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
