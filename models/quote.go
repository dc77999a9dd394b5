package models

import "time"

// Quote statuses.
const (
	QuotePending     = "pending"
	QuoteAccepted    = "accepted"
	QuoteRejected    = "rejected"
	QuoteNotSelected = "not_selected"
	QuoteExpired     = "expired"
	QuoteCancelled   = "cancelled"
)

// DefaultQuoteValidityHours is applied when a technician submits a quote
// without an explicit validity window.
const DefaultQuoteValidityHours = 48

// EstimatedDuration is a value+unit pair, e.g. {2, "hours"}.
type EstimatedDuration struct {
	Value float64 `bson:"value" json:"value"`
	Unit  string  `bson:"unit" json:"unit"` // minutes | hours | days
}

// MaterialItem is one line of a quote's itemized materials.
type MaterialItem struct {
	Name      string  `bson:"name" json:"name"`
	Quantity  float64 `bson:"quantity" json:"quantity"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
}

// ReputationSnapshot freezes the technician's reputation at submission
// time so later review changes don't reshuffle already-submitted quotes.
type ReputationSnapshot struct {
	Rating      float64 `bson:"rating" json:"rating"`
	ReviewCount int     `bson:"review_count" json:"review_count"`
	JobsDone    int     `bson:"jobs_done" json:"jobs_done"`
}

// Quote is a technician's priced, time-bounded offer against a request.
// At most one quote per (request, technician) may be active at a time.
// Content becomes immutable once accepted; only the status moves afterward.
type Quote struct {
	ID           string `bson:"id" json:"id"`
	RequestID    string `bson:"request_id" json:"request_id"`
	TechnicianID string `bson:"technician_id" json:"technician_id"`

	Price     float64           `bson:"price" json:"price"`
	Duration  EstimatedDuration `bson:"duration" json:"duration"`
	Materials []MaterialItem    `bson:"materials,omitempty" json:"materials,omitempty"`
	Notes     string            `bson:"notes,omitempty" json:"notes,omitempty"`

	ValidUntil time.Time `bson:"valid_until" json:"valid_until"`
	Status     string    `bson:"status" json:"status"`
	// StatusReason carries a user-facing explanation for not_selected.
	StatusReason string `bson:"status_reason,omitempty" json:"status_reason,omitempty"`

	Reputation ReputationSnapshot `bson:"reputation" json:"reputation"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}

// Active reports whether the quote still binds the technician.
func (q *Quote) Active() bool {
	return q.Status == QuotePending || q.Status == QuoteAccepted
}

// ExpiredAt reports whether a pending quote's validity window has lapsed.
func (q *Quote) ExpiredAt(now time.Time) bool {
	return q.Status == QuotePending && now.After(q.ValidUntil)
}
