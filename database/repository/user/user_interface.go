package userRepo

import (
	"servifix/models"
)

// TechnicianSearchCriteria defines criteria for a geo technician search.
type TechnicianSearchCriteria struct {
	Category      string
	Origin        models.GeoPoint
	RadiusKm      float64
	EmergencyOnly bool
	Limit         int64
}

// TechnicianMatch pairs a technician with the index-computed distance.
type TechnicianMatch struct {
	User       models.User
	DistanceKm float64
}

// UserRepository defines data access for users. It doubles as the
// UserDirectory collaborator: profile, specialties, membership tier and
// base location all live here.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(id string) (*models.User, error)
	// Create inserts a new user record.
	Create(user *models.User) error
	// Update replaces an existing user record.
	Update(user *models.User) error
	// NearbyTechnicians runs a proximity-index search returning matches in
	// ascending distance order. DistanceKm is filled by the index.
	NearbyTechnicians(criteria TechnicianSearchCriteria) ([]TechnicianMatch, error)
	// TechniciansWithinRadius runs a spherical-cap containment query with
	// no ordering guarantee; callers sort client-side.
	TechniciansWithinRadius(criteria TechnicianSearchCriteria) ([]models.User, error)
	// TechniciansByCategory returns all technicians for a category,
	// unfiltered by location.
	TechniciansByCategory(category string, emergencyOnly bool) ([]models.User, error)
	// CreditFunds increases a technician's accrued funds balance.
	CreditFunds(id string, amount float64) error
	// AppendLoyalty appends a loyalty history entry and moves the balance
	// by delta in the same update. A negative delta only matches when the
	// stored balance covers it; false means no document qualified.
	AppendLoyalty(id string, entry models.LoyaltyEntry, delta int) (bool, error)
}
