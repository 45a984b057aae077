// Package preview serves live view previews over a WebSocket. Clients send a
// raw view configuration and receive the rendered markup, the configuration
// violations or the gaps found while parsing it.
package preview

import (
	"encoding/json"

	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "render", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// RenderData is the payload for "render" messages.
type RenderData struct {
	Config json.RawMessage `json:"config"`
	Rows   int             `json:"rows,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "markup", "violations", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// MarkupData carries a rendered view and the gaps recorded while parsing it.
type MarkupData struct {
	Entity string          `json:"entity"`
	Layout string          `json:"layout"`
	Markup string          `json:"markup"`
	Gaps   []gaplog.Record `json:"gaps"`
}

// ViolationsData lists every problem of a rejected configuration.
type ViolationsData struct {
	Violations []viewconfig.Violation `json:"violations"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
