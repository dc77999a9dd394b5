package quoteRepo

import (
	"time"

	"servifix/models"
)

// QuoteEdit carries the mutable fields of a pending quote.
type QuoteEdit struct {
	Price     float64
	Duration  models.EstimatedDuration
	Materials []models.MaterialItem
	Notes     string
	EditedAt  time.Time
}

// QuoteRepository defines data access for quotes.
type QuoteRepository interface {
	// Create inserts a new quote record.
	Create(quote *models.Quote) error
	// GetByID retrieves a quote by its unique ID.
	GetByID(id string) (*models.Quote, error)
	// ListByRequest returns all quotes on a request, newest first.
	ListByRequest(requestID string) ([]models.Quote, error)
	// ListByTechnician returns a technician's quotes, newest first.
	ListByTechnician(technicianID string) ([]models.Quote, error)
	// ActiveByRequestAndTechnician returns the technician's pending or
	// accepted quote on the request, or nil when there is none.
	ActiveByRequestAndTechnician(requestID, technicianID string) (*models.Quote, error)
	// SetStatusIf flips the status only when the current status is one of
	// from; reason, when non-empty, becomes the user-facing status reason.
	SetStatusIf(id string, from []string, to, reason string) (bool, error)
	// CascadeNotSelected moves every pending quote on the request except
	// exceptID to not_selected and returns the quotes it touched.
	CascadeNotSelected(requestID, exceptID, reason string) ([]models.Quote, error)
	// UpdateContent edits a quote's content while it is still pending.
	UpdateContent(id string, edit QuoteEdit) (bool, error)
	// ExpireDue marks every pending quote past its deadline expired and
	// returns how many it swept.
	ExpireDue(now time.Time) (int64, error)
	// ExpireDueForRequest sweeps only one request's quotes; used as the
	// read-time sweep before listing or accepting.
	ExpireDueForRequest(requestID string, now time.Time) error
}
