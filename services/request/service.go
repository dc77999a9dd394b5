// Package request owns the client side of the marketplace: posting a
// service request, notifying matched technicians and cancelling.
package request

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	quoteRepo "servifix/database/repository/quote"
	requestRepo "servifix/database/repository/request"
	userRepo "servifix/database/repository/user"
	"servifix/models"
	"servifix/services/apperr"
	"servifix/services/matching"
	"servifix/services/notification"
)

// CancelledReason is stamped on every pending quote when the client
// withdraws the request.
const CancelledReason = "The client cancelled the request"

// CreateInput carries a client's new service request.
type CreateInput struct {
	Category    string           `json:"category" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Location    *models.GeoPoint `json:"location,omitempty"`
	Address     string           `json:"address,omitempty"`
	Urgency     string           `json:"urgency,omitempty"`
}

// RequestService defines the service-request operations.
type RequestService interface {
	// Create posts a request and notifies matched technicians.
	Create(clientID string, input CreateInput) (*models.ServiceRequest, error)
	// Get returns a request to its owner.
	Get(clientID, requestID string) (*models.ServiceRequest, error)
	// ListForClient returns the client's requests.
	ListForClient(clientID string) ([]models.ServiceRequest, error)
	// Cancel withdraws an unsettled request and settles its quotes.
	Cancel(clientID, requestID string) error
	// AvailableForTechnician returns the technician's nearby open requests.
	AvailableForTechnician(technicianID string) ([]matching.RankedRequest, error)
}

// DefaultRequestService implements RequestService.
type DefaultRequestService struct {
	Users    userRepo.UserRepository
	Requests requestRepo.RequestRepository
	Quotes   quoteRepo.QuoteRepository
	Matcher  matching.MatcherService
	Fanout   notification.Fanout
}

func NewRequestService(
	users userRepo.UserRepository,
	requests requestRepo.RequestRepository,
	quotes quoteRepo.QuoteRepository,
	matcher matching.MatcherService,
	fanout notification.Fanout,
) *DefaultRequestService {
	return &DefaultRequestService{
		Users:    users,
		Requests: requests,
		Quotes:   quotes,
		Matcher:  matcher,
		Fanout:   fanout,
	}
}

func (s *DefaultRequestService) Create(clientID string, input CreateInput) (*models.ServiceRequest, error) {
	client, err := s.Users.GetByID(clientID)
	if err != nil {
		return nil, apperr.NotFound("client %s not found", clientID)
	}
	if client.Role != models.RoleClient {
		return nil, apperr.Unauthorized("only clients post requests")
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	switch urgency {
	case models.UrgencyNormal, models.UrgencyImmediate, models.UrgencyEmergency:
	default:
		return nil, apperr.Validation("unknown urgency %q", urgency)
	}

	now := time.Now()
	r := &models.ServiceRequest{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		Category:    input.Category,
		Description: input.Description,
		Address:     input.Address,
		Urgency:     urgency,
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Location != nil {
		r.Location = *input.Location
	}
	if err := s.Requests.Create(r); err != nil {
		return nil, apperr.Infra("request create failed: %v", err)
	}

	s.notifyMatches(r)

	zap.L().Info("request posted",
		zap.String("request_id", r.ID),
		zap.String("client_id", clientID),
		zap.String("category", r.Category),
		zap.String("urgency", r.Urgency))
	return r, nil
}

// notifyMatches runs the matcher and fans the request out to candidates.
// Matching failures degrade to an unnotified request; technicians still
// find it through their feed.
func (s *DefaultRequestService) notifyMatches(r *models.ServiceRequest) {
	ranked, err := s.Matcher.MatchTechnicians(r)
	if err != nil {
		zap.L().Warn("technician matching failed",
			zap.String("request_id", r.ID), zap.Error(err))
		return
	}
	if len(ranked) == 0 {
		return
	}

	now := time.Now()
	notified := make([]models.NotifiedTechnician, 0, len(ranked))
	for _, match := range ranked {
		notified = append(notified, models.NotifiedTechnician{
			TechnicianID: match.Technician.ID,
			NotifiedAt:   now,
		})
		s.Fanout.SendToUser(match.Technician.ID, notification.NewRequestEvent(r, match.DistanceKm))
	}
	if err := s.Requests.SetNotified(r.ID, notified); err != nil {
		zap.L().Warn("notified list persist failed",
			zap.String("request_id", r.ID), zap.Error(err))
		return
	}
	r.Notified = notified
}

func (s *DefaultRequestService) Get(clientID, requestID string) (*models.ServiceRequest, error) {
	r, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, apperr.NotFound("request %s not found", requestID)
	}
	if r.ClientID != clientID {
		return nil, apperr.Unauthorized("only the owner views a request")
	}
	return r, nil
}

func (s *DefaultRequestService) ListForClient(clientID string) ([]models.ServiceRequest, error) {
	requests, err := s.Requests.ListByClient(clientID)
	if err != nil {
		return nil, apperr.Infra("request list failed: %v", err)
	}
	return requests, nil
}

func (s *DefaultRequestService) Cancel(clientID, requestID string) error {
	r, err := s.Requests.GetByID(requestID)
	if err != nil {
		return apperr.NotFound("request %s not found", requestID)
	}
	if r.ClientID != clientID {
		return apperr.Unauthorized("only the owner cancels a request")
	}

	ok, err := s.Requests.SetStatusIf(requestID,
		[]string{models.RequestPending, models.RequestQuoted}, models.RequestCancelled)
	if err != nil {
		return apperr.Infra("request cancel failed: %v", err)
	}
	if !ok {
		return apperr.Conflict("request %s can no longer be cancelled", requestID)
	}

	settled, err := s.Quotes.CascadeNotSelected(requestID, "", CancelledReason)
	if err != nil {
		zap.L().Error("quote settle on cancel failed",
			zap.String("request_id", requestID), zap.Error(err))
		return nil
	}
	for i := range settled {
		s.Fanout.SendToUser(settled[i].TechnicianID, notification.QuoteNotSelectedEvent(&settled[i]))
	}

	zap.L().Info("request cancelled",
		zap.String("request_id", requestID),
		zap.Int("quotes_settled", len(settled)))
	return nil
}

func (s *DefaultRequestService) AvailableForTechnician(technicianID string) ([]matching.RankedRequest, error) {
	technician, err := s.Users.GetByID(technicianID)
	if err != nil {
		return nil, apperr.NotFound("technician %s not found", technicianID)
	}
	return s.Matcher.AvailableRequests(technician)
}
