// Package quote is the ledger of technician offers: submission, expiry,
// editing, and the acceptance flow that settles a request into a job.
package quote

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	jobRepo "servifix/database/repository/job"
	quoteRepo "servifix/database/repository/quote"
	requestRepo "servifix/database/repository/request"
	userRepo "servifix/database/repository/user"
	"servifix/models"
	"servifix/services/apperr"
	"servifix/services/escrow"
	"servifix/services/notification"
)

// NotSelectedReason is the user-facing explanation stamped on rival quotes
// when a request settles.
const NotSelectedReason = "The client selected another quote for this request"

// SubmitInput carries a technician's offer on a request.
type SubmitInput struct {
	RequestID     string                   `json:"request_id" binding:"required"`
	Price         float64                  `json:"price" binding:"required"`
	Duration      models.EstimatedDuration `json:"duration" binding:"required"`
	Materials     []models.MaterialItem    `json:"materials,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	ValidityHours int                      `json:"validity_hours,omitempty"`
}

// EditInput carries the mutable fields of a pending quote.
type EditInput struct {
	Price     float64                  `json:"price" binding:"required"`
	Duration  models.EstimatedDuration `json:"duration" binding:"required"`
	Materials []models.MaterialItem    `json:"materials,omitempty"`
	Notes     string                   `json:"notes,omitempty"`
}

// QuoteDetail is a quote enriched with the offering technician's profile,
// for client-facing reads. The technician renders as a bare ID when the
// profile lookup misses.
type QuoteDetail struct {
	models.Quote
	Technician models.PopulatedUser `json:"technician"`
}

// AcceptOptions carries the client's choices at acceptance time.
type AcceptOptions struct {
	WithGuarantee bool `json:"with_guarantee"`
}

// QuoteService defines quote-ledger operations.
type QuoteService interface {
	// Submit records a technician's offer on an open request.
	Submit(technicianID string, input SubmitInput) (*models.Quote, error)
	// Accept settles the request on one quote and creates the job.
	Accept(clientID, quoteID string, opts AcceptOptions) (*models.Job, error)
	// Reject declines a pending quote; request-owner only.
	Reject(clientID, quoteID string) error
	// Cancel withdraws a pending quote; owning technician only.
	Cancel(technicianID, quoteID string) error
	// Edit revises a pending quote's content; owning technician only.
	Edit(technicianID, quoteID string, input EditInput) (*models.Quote, error)
	// ListForRequest returns a request's quotes to its owner, swept first,
	// with each technician's profile populated.
	ListForRequest(clientID, requestID string) ([]QuoteDetail, error)
	// ListForTechnician returns the technician's own quotes.
	ListForTechnician(technicianID string) ([]models.Quote, error)
	// ExpireSweep marks every overdue pending quote expired.
	ExpireSweep() (int64, error)
}

// DefaultQuoteService implements QuoteService over the Mongo repositories.
type DefaultQuoteService struct {
	Users    userRepo.UserRepository
	Requests requestRepo.RequestRepository
	Quotes   quoteRepo.QuoteRepository
	Jobs     jobRepo.JobRepository
	Fanout   notification.Fanout
}

func NewQuoteService(
	users userRepo.UserRepository,
	requests requestRepo.RequestRepository,
	quotes quoteRepo.QuoteRepository,
	jobs jobRepo.JobRepository,
	fanout notification.Fanout,
) *DefaultQuoteService {
	return &DefaultQuoteService{
		Users:    users,
		Requests: requests,
		Quotes:   quotes,
		Jobs:     jobs,
		Fanout:   fanout,
	}
}

func (s *DefaultQuoteService) Submit(technicianID string, input SubmitInput) (*models.Quote, error) {
	if input.Price <= 0 {
		return nil, apperr.Validation("price must be positive")
	}
	if input.ValidityHours < 0 {
		return nil, apperr.Validation("validity hours must not be negative")
	}

	technician, err := s.Users.GetByID(technicianID)
	if err != nil {
		return nil, apperr.NotFound("technician %s not found", technicianID)
	}
	if !technician.IsTechnician() {
		return nil, apperr.Unauthorized("only technicians submit quotes")
	}

	request, err := s.Requests.GetByID(input.RequestID)
	if err != nil {
		return nil, apperr.NotFound("request %s not found", input.RequestID)
	}
	if !technician.HasSpecialty(request.Category) {
		return nil, apperr.Unauthorized("technician lacks the %s specialty", request.Category)
	}

	now := time.Now()
	if err := s.Quotes.ExpireDueForRequest(request.ID, now); err != nil {
		return nil, apperr.Infra("expiry sweep failed: %v", err)
	}
	if !request.OpenForQuotes() {
		return nil, apperr.Conflict("request %s is no longer open for quotes", request.ID)
	}

	existing, err := s.Quotes.ActiveByRequestAndTechnician(request.ID, technicianID)
	if err != nil {
		return nil, apperr.Infra("quote lookup failed: %v", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("technician already has an active quote on this request")
	}

	validity := input.ValidityHours
	if validity == 0 {
		validity = models.DefaultQuoteValidityHours
	}

	q := &models.Quote{
		ID:           uuid.NewString(),
		RequestID:    request.ID,
		TechnicianID: technicianID,
		Price:        input.Price,
		Duration:     input.Duration,
		Materials:    input.Materials,
		Notes:        input.Notes,
		ValidUntil:   now.Add(time.Duration(validity) * time.Hour),
		Status:       models.QuotePending,
		Reputation: models.ReputationSnapshot{
			Rating:      technician.Rating,
			ReviewCount: technician.ReviewCount,
			JobsDone:    technician.JobsDone,
		},
		CreatedAt: now,
	}
	if err := s.Quotes.Create(q); err != nil {
		return nil, apperr.Infra("quote create failed: %v", err)
	}

	// First quote flips the request to quoted. Losing this flip to a
	// concurrent submitter is fine; someone made it quoted.
	if request.Status == models.RequestPending {
		if _, err := s.Requests.SetStatusIf(request.ID,
			[]string{models.RequestPending}, models.RequestQuoted); err != nil {
			zap.L().Warn("request status flip failed",
				zap.String("request_id", request.ID), zap.Error(err))
		}
	}
	if err := s.Requests.MarkResponded(request.ID, technicianID); err != nil {
		zap.L().Warn("mark responded failed",
			zap.String("request_id", request.ID), zap.Error(err))
	}

	s.Fanout.SendToUser(request.ClientID, notification.NewQuoteEvent(q))

	zap.L().Info("quote submitted",
		zap.String("quote_id", q.ID),
		zap.String("request_id", request.ID),
		zap.String("technician_id", technicianID),
		zap.Float64("price", q.Price))
	return q, nil
}

// Accept is the settlement point of the whole engine. The request status
// flip is a conditional update; exactly one concurrent caller observes the
// open status set and wins, everyone else gets a state conflict.
func (s *DefaultQuoteService) Accept(clientID, quoteID string, opts AcceptOptions) (*models.Job, error) {
	q, err := s.Quotes.GetByID(quoteID)
	if err != nil {
		return nil, apperr.NotFound("quote %s not found", quoteID)
	}
	request, err := s.Requests.GetByID(q.RequestID)
	if err != nil {
		return nil, apperr.NotFound("request %s not found", q.RequestID)
	}
	if request.ClientID != clientID {
		return nil, apperr.Unauthorized("only the request owner accepts quotes")
	}

	now := time.Now()
	if err := s.Quotes.ExpireDueForRequest(request.ID, now); err != nil {
		return nil, apperr.Infra("expiry sweep failed: %v", err)
	}
	if q.Status != models.QuotePending || q.ExpiredAt(now) {
		return nil, apperr.Conflict("quote is no longer acceptable")
	}

	won, err := s.Requests.SetStatusIf(request.ID,
		[]string{models.RequestPending, models.RequestQuoted}, models.RequestAccepted)
	if err != nil {
		return nil, apperr.Infra("request settle failed: %v", err)
	}
	if !won {
		return nil, apperr.Conflict("request %s was already settled", request.ID)
	}

	flipped, err := s.Quotes.SetStatusIf(quoteID,
		[]string{models.QuotePending}, models.QuoteAccepted, "")
	if err != nil {
		s.unsettle(request.ID, "")
		return nil, apperr.Infra("quote accept failed: %v", err)
	}
	if !flipped {
		// The quote was cancelled or expired between the pending check and
		// this flip. Reopen the request so another quote remains acceptable.
		s.unsettle(request.ID, "")
		return nil, apperr.Conflict("quote is no longer acceptable")
	}

	technician, err := s.Users.GetByID(q.TechnicianID)
	if err != nil {
		s.unsettle(request.ID, quoteID)
		return nil, apperr.Infra("technician lookup failed: %v", err)
	}

	breakdown := escrow.Compute(q.Price, escrow.Options{
		Urgent:         request.IsEmergency(),
		Immediate:      request.IsImmediate(),
		WithGuarantee:  opts.WithGuarantee,
		MembershipTier: technician.MembershipTier,
	})

	job := &models.Job{
		ID:           uuid.NewString(),
		RequestID:    request.ID,
		QuoteID:      q.ID,
		ClientID:     clientID,
		TechnicianID: q.TechnicianID,
		Category:     request.Category,
		Status:       models.JobScheduled,
		Payment:      escrow.NewEscrowPayment(breakdown, opts.WithGuarantee),
		History: []models.StatusHistoryEntry{{
			Status:  models.JobScheduled,
			At:      now,
			ActorID: clientID,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Jobs.Create(job); err != nil {
		s.unsettle(request.ID, quoteID)
		return nil, apperr.Infra("job create failed: %v", err)
	}

	rivals, err := s.Quotes.CascadeNotSelected(request.ID, q.ID, NotSelectedReason)
	if err != nil {
		zap.L().Error("rival cascade failed",
			zap.String("request_id", request.ID), zap.Error(err))
	}

	group := notification.JobGroup(job.ID)
	s.Fanout.JoinGroup(group, clientID)
	s.Fanout.JoinGroup(group, q.TechnicianID)

	s.Fanout.SendToUser(q.TechnicianID, notification.QuoteAcceptedEvent(q, job.ID))
	for i := range rivals {
		s.Fanout.SendToUser(rivals[i].TechnicianID, notification.QuoteNotSelectedEvent(&rivals[i]))
	}

	zap.L().Info("quote accepted",
		zap.String("quote_id", q.ID),
		zap.String("request_id", request.ID),
		zap.String("job_id", job.ID),
		zap.Float64("escrow_amount", job.Payment.Amount),
		zap.Int("rivals_settled", len(rivals)))
	return job, nil
}

// unsettle undoes a won request settlement when acceptance cannot finish,
// so the request drops back to quoted and the other quotes stay acceptable.
// When quoteID is non-empty the already-accepted quote returns to pending.
func (s *DefaultQuoteService) unsettle(requestID, quoteID string) {
	if _, err := s.Requests.SetStatusIf(requestID,
		[]string{models.RequestAccepted}, models.RequestQuoted); err != nil {
		zap.L().Error("request settle rollback failed",
			zap.String("request_id", requestID), zap.Error(err))
	}
	if quoteID == "" {
		return
	}
	if _, err := s.Quotes.SetStatusIf(quoteID,
		[]string{models.QuoteAccepted}, models.QuotePending, ""); err != nil {
		zap.L().Error("quote accept rollback failed",
			zap.String("quote_id", quoteID), zap.Error(err))
	}
}

func (s *DefaultQuoteService) Reject(clientID, quoteID string) error {
	q, err := s.Quotes.GetByID(quoteID)
	if err != nil {
		return apperr.NotFound("quote %s not found", quoteID)
	}
	request, err := s.Requests.GetByID(q.RequestID)
	if err != nil {
		return apperr.NotFound("request %s not found", q.RequestID)
	}
	if request.ClientID != clientID {
		return apperr.Unauthorized("only the request owner rejects quotes")
	}

	ok, err := s.Quotes.SetStatusIf(quoteID,
		[]string{models.QuotePending}, models.QuoteRejected, "")
	if err != nil {
		return apperr.Infra("quote reject failed: %v", err)
	}
	if !ok {
		return apperr.Conflict("only pending quotes can be rejected")
	}
	return nil
}

func (s *DefaultQuoteService) Cancel(technicianID, quoteID string) error {
	q, err := s.Quotes.GetByID(quoteID)
	if err != nil {
		return apperr.NotFound("quote %s not found", quoteID)
	}
	if q.TechnicianID != technicianID {
		return apperr.Unauthorized("only the owning technician cancels a quote")
	}

	ok, err := s.Quotes.SetStatusIf(quoteID,
		[]string{models.QuotePending}, models.QuoteCancelled, "")
	if err != nil {
		return apperr.Infra("quote cancel failed: %v", err)
	}
	if !ok {
		return apperr.Conflict("only pending quotes can be cancelled")
	}

	if request, err := s.Requests.GetByID(q.RequestID); err == nil {
		q.Status = models.QuoteCancelled
		s.Fanout.SendToUser(request.ClientID, notification.QuoteCancelledEvent(q))
	}
	return nil
}

func (s *DefaultQuoteService) Edit(technicianID, quoteID string, input EditInput) (*models.Quote, error) {
	if input.Price <= 0 {
		return nil, apperr.Validation("price must be positive")
	}

	q, err := s.Quotes.GetByID(quoteID)
	if err != nil {
		return nil, apperr.NotFound("quote %s not found", quoteID)
	}
	if q.TechnicianID != technicianID {
		return nil, apperr.Unauthorized("only the owning technician edits a quote")
	}

	now := time.Now()
	edit := quoteRepo.QuoteEdit{
		Price:     input.Price,
		Duration:  input.Duration,
		Materials: input.Materials,
		Notes:     input.Notes,
		EditedAt:  now,
	}
	ok, err := s.Quotes.UpdateContent(quoteID, edit)
	if err != nil {
		return nil, apperr.Infra("quote edit failed: %v", err)
	}
	if !ok {
		return nil, apperr.Conflict("only pending quotes can be edited")
	}

	q.Price = input.Price
	q.Duration = input.Duration
	q.Materials = input.Materials
	q.Notes = input.Notes
	q.EditedAt = &now

	if request, err := s.Requests.GetByID(q.RequestID); err == nil {
		s.Fanout.SendToUser(request.ClientID, notification.QuoteEditedEvent(q))
	}
	return q, nil
}

func (s *DefaultQuoteService) ListForRequest(clientID, requestID string) ([]QuoteDetail, error) {
	request, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, apperr.NotFound("request %s not found", requestID)
	}
	if request.ClientID != clientID {
		return nil, apperr.Unauthorized("only the request owner lists its quotes")
	}
	if err := s.Quotes.ExpireDueForRequest(requestID, time.Now()); err != nil {
		return nil, apperr.Infra("expiry sweep failed: %v", err)
	}
	quotes, err := s.Quotes.ListByRequest(requestID)
	if err != nil {
		return nil, apperr.Infra("quote list failed: %v", err)
	}

	details := make([]QuoteDetail, 0, len(quotes))
	for i := range quotes {
		detail := QuoteDetail{
			Quote:      quotes[i],
			Technician: models.PopulatedUser{ID: quotes[i].TechnicianID},
		}
		if technician, err := s.Users.GetByID(quotes[i].TechnicianID); err == nil {
			detail.Technician.Full = technician
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *DefaultQuoteService) ListForTechnician(technicianID string) ([]models.Quote, error) {
	quotes, err := s.Quotes.ListByTechnician(technicianID)
	if err != nil {
		return nil, apperr.Infra("quote list failed: %v", err)
	}
	return quotes, nil
}

func (s *DefaultQuoteService) ExpireSweep() (int64, error) {
	swept, err := s.Quotes.ExpireDue(time.Now())
	if err != nil {
		return 0, apperr.Infra("expiry sweep failed: %v", err)
	}
	if swept > 0 {
		zap.L().Info("expired overdue quotes", zap.Int64("count", swept))
	}
	return swept, nil
}
