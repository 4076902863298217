// Package wire defines the WebSocket protocol for live form editing.
// A connection joins one existing edit session; every field write is
// acknowledged, and guard warnings push back over the same connection.
package wire

import (
	"encoding/json"

	"github.com/helloakshay27/hi-society-assets/internal/form"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string          `json:"type"` // "field", "validate", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// FieldData is the payload for "field" messages.
type FieldData struct {
	Group     string `json:"group,omitempty"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	FieldType string `json:"field_type,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "ack", "warning", "errors", "pong", "error"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent once after the connection joins its session.
type SessionData struct {
	SessionID string `json:"session_id"`
	AssetID   int    `json:"asset_id"`
	Category  string `json:"category"`
}

// AckData confirms one field write.
type AckData struct {
	Field   string        `json:"field"`
	Applied bool          `json:"applied"`
	Warning *form.Warning `json:"warning,omitempty"`
}

// ErrorsData carries validation messages (empty means the form is valid).
type ErrorsData struct {
	Errors []string `json:"errors"`
}

// ErrorData carries a protocol-level error.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
