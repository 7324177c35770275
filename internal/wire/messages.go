// Package wire defines the WebSocket protocol of the live change feed: each
// connection is one editing surface, identified by a componentID, publishing
// operations and receiving the changes of everyone else.
package wire

import (
	"encoding/json"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "subscribe", "publish", "publish_batch", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the payload for "subscribe" messages. An empty ComponentID
// gets a server-assigned one.
type SubscribeData struct {
	ComponentID string `json:"component_id,omitempty"`
}

// PublishData is the payload for "publish" messages.
type PublishData struct {
	Op op.Envelope `json:"op"`
}

// PublishBatchData is the payload for "publish_batch" messages.
type PublishBatchData struct {
	Ops []op.Envelope `json:"ops"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "change", "ack", "batch_ack", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData confirms a subscription.
type SessionData struct {
	ComponentID string `json:"component_id"`
}

// ChangeData carries one committed change: the operation and the full
// canonical snapshot taken at commit time.
type ChangeData struct {
	Origin string               `json:"origin"`
	Op     op.Operation         `json:"op"`
	State  types.CanonicalState `json:"state"`
}

// AckData reports the outcome of one published operation.
type AckData struct {
	Committed  bool   `json:"committed"`
	NoOp       bool   `json:"no_op,omitempty"`
	WidgetID   string `json:"widget_id,omitempty"`
	Error      string `json:"error,omitempty"`
	PersistErr string `json:"persist_err,omitempty"`
}

// BatchAckData reports per-item outcomes of a published batch.
type BatchAckData struct {
	Items []AckData `json:"items"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
