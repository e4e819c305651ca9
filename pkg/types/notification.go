package types

import (
	"encoding/json"

	"github.com/mortarline/notify-backend/pkg/enums"
)

// NotificationData is the opaque payload a client receives alongside the
// visible title/body. Extra carries event-specific fields untouched.
type NotificationData struct {
	URL   string                 `json:"url,omitempty"`
	Type  enums.NotificationType `json:"type"`
	Extra map[string]any         `json:"extra,omitempty"`
}

// NotificationPayload is the ephemeral per-event notification. It is built
// once by the triggering feature, serialized once, and reused unchanged for
// every delivery target in a fan-out. Never persisted.
type NotificationPayload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Icon  string           `json:"icon,omitempty"`
	Badge string           `json:"badge,omitempty"`
	Data  NotificationData `json:"data"`
}

// Marshal serializes the payload for the wire.
func (p NotificationPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
