package requestRepo

import (
	"servifix/models"
)

// OpenRequestSearchCriteria defines criteria for a technician-side feed of
// open requests.
type OpenRequestSearchCriteria struct {
	Categories []string
	Origin     models.GeoPoint
	RadiusKm   float64
	Limit      int64
}

// RequestMatch pairs an open request with the index-computed distance.
type RequestMatch struct {
	Request    models.ServiceRequest
	DistanceKm float64
}

// RequestRepository defines data access for service requests.
type RequestRepository interface {
	// Create inserts a new request record.
	Create(request *models.ServiceRequest) error
	// GetByID retrieves a request by its unique ID.
	GetByID(id string) (*models.ServiceRequest, error)
	// ListByClient returns a client's requests, newest first.
	ListByClient(clientID string) ([]models.ServiceRequest, error)
	// SetStatusIf flips the status only when the current status is one of
	// from. Returns false when the precondition did not hold. This is the
	// compare-and-swap guard for quote acceptance.
	SetStatusIf(id string, from []string, to string) (bool, error)
	// SetNotified stores the list of technicians the matcher notified.
	SetNotified(id string, notified []models.NotifiedTechnician) error
	// MarkResponded flips the per-technician responded flag.
	MarkResponded(requestID, technicianID string) error
	// OpenNear runs a proximity-index search for open requests, ascending
	// distance order.
	OpenNear(criteria OpenRequestSearchCriteria) ([]RequestMatch, error)
	// OpenWithinRadius runs a spherical-cap containment query, unordered.
	OpenWithinRadius(criteria OpenRequestSearchCriteria) ([]models.ServiceRequest, error)
	// OpenByCategories returns all open requests for the categories with
	// no location filter.
	OpenByCategories(categories []string) ([]models.ServiceRequest, error)
}
