package models

import "time"

// Event types delivered over the realtime channel.
const (
	EventNewRequest         = "new_request"
	EventNewQuote           = "new_quote"
	EventQuoteAccepted      = "quote_accepted"
	EventQuoteEdited        = "quote_edited"
	EventQuoteCancelled     = "quote_cancelled"
	EventQuoteNotSelected   = "quote_not_selected"
	EventJobStatusChanged   = "job_status_changed"
	EventTechnicianLocation = "technician_location"
	EventFundsReleased      = "funds_released"
	EventPointsEarned       = "points_earned"
	EventChatMessage        = "chat_message"
	EventTyping             = "typing"
)

// NotificationEvent is a structured realtime event. It is delivered
// best-effort to connected recipients and never persisted by this engine.
type NotificationEvent struct {
	Type      string                 `json:"type"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ChatMessage is an inbound frame on the websocket: either a direct
// message to a user or a message scoped to a job room. Typing indicators
// and live location pings reuse the same frame with no persisted record.
type ChatMessage struct {
	Kind       string    `json:"kind"` // chat_message | typing | technician_location
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	JobID      string    `json:"job_id,omitempty"`
	Text       string    `json:"text,omitempty"`
	Location   *GeoPoint `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
