package models

import "time"

// ServiceRequest lifecycle statuses.
const (
	RequestPending    = "pending"
	RequestQuoted     = "quoted"
	RequestAccepted   = "accepted"
	RequestInProgress = "in_progress"
	RequestCompleted  = "completed"
	RequestCancelled  = "cancelled"
)

// Urgency levels for a service request. Immediate work carries a price
// surcharge; emergency work additionally doubles the price, restricts
// matching to emergency-capable technicians and widens the search radius.
const (
	UrgencyNormal    = "normal"
	UrgencyImmediate = "immediate"
	UrgencyEmergency = "emergency"
)

// NotifiedTechnician records one technician the matcher notified about a
// request, with whether they responded with a quote.
type NotifiedTechnician struct {
	TechnicianID string    `bson:"technician_id" json:"technician_id"`
	NotifiedAt   time.Time `bson:"notified_at" json:"notified_at"`
	Responded    bool      `bson:"responded" json:"responded"`
}

// ServiceRequest is a client's ask for a service, open for competing quotes.
type ServiceRequest struct {
	ID          string    `bson:"id" json:"id"`
	ClientID    string    `bson:"client_id" json:"client_id"`
	Category    string    `bson:"category" json:"category"`
	Description string    `bson:"description" json:"description"`
	Location    GeoPoint  `bson:"location,omitempty" json:"location,omitempty"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Urgency     string    `bson:"urgency" json:"urgency"` // normal | immediate | emergency
	Status      string    `bson:"status" json:"status"`

	Notified []NotifiedTechnician `bson:"notified,omitempty" json:"notified,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsEmergency reports whether the request demands emergency availability.
func (r *ServiceRequest) IsEmergency() bool { return r.Urgency == UrgencyEmergency }

// IsImmediate reports whether the request carries the immediate surcharge.
func (r *ServiceRequest) IsImmediate() bool { return r.Urgency == UrgencyImmediate }

// OpenForQuotes reports whether technicians may still submit quotes.
func (r *ServiceRequest) OpenForQuotes() bool {
	return r.Status == RequestPending || r.Status == RequestQuoted
}

// Terminal reports whether the request reached a final status.
func (r *ServiceRequest) Terminal() bool {
	return r.Status == RequestCompleted || r.Status == RequestCancelled
}
