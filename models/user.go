package models

import "time"

// User roles.
const (
	RoleClient     = "client"
	RoleTechnician = "technician"
)

// Technician membership tiers. The tier alters the commission rate and the
// effective search radius bonus.
const (
	TierBasic   = "basic"
	TierPro     = "pro"
	TierPremium = "premium"
)

// User represents either a client or a technician account.
type User struct {
	ID            string   `bson:"id" json:"id"`
	Role          string   `bson:"role" json:"role"`
	Name          string   `bson:"name" json:"name"`
	Email         string   `bson:"email" json:"email"`
	Phone         string   `bson:"phone,omitempty" json:"phone,omitempty"`
	AvatarURL     string   `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Specialties   []string `bson:"specialties,omitempty" json:"specialties,omitempty"` // technician service categories
	MembershipTier string  `bson:"membership_tier,omitempty" json:"membership_tier,omitempty"`

	// Reputation as accumulated from reviews; snapshotted onto quotes.
	Rating       float64 `bson:"rating" json:"rating"`
	ReviewCount  int     `bson:"review_count" json:"review_count"`
	JobsDone     int     `bson:"jobs_done" json:"jobs_done"`

	// Technician availability.
	BaseLocation          GeoPoint `bson:"base_location,omitempty" json:"base_location,omitempty"`
	AvailableForEmergency bool     `bson:"available_for_emergency" json:"available_for_emergency"`

	// AccruedFunds holds the technician's released escrow balance.
	AccruedFunds float64 `bson:"accrued_funds" json:"accrued_funds"`

	// Loyalty is the client-only points facet.
	Loyalty LoyaltyAccount `bson:"loyalty,omitempty" json:"loyalty,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsTechnician reports whether the user acts as a technician.
func (u *User) IsTechnician() bool { return u.Role == RoleTechnician }

// HasSpecialty reports whether the technician offers the given category.
func (u *User) HasSpecialty(category string) bool {
	for _, s := range u.Specialties {
		if s == category {
			return true
		}
	}
	return false
}

// TierRadiusBonusKm returns the extra search radius granted by the
// technician's membership tier.
func TierRadiusBonusKm(tier string) float64 {
	switch tier {
	case TierPro:
		return 5
	case TierPremium:
		return 10
	default:
		return 0
	}
}

// Loyalty entry kinds.
const (
	LoyaltyEarned   = "earned"
	LoyaltyRedeemed = "redeemed"
)

// LoyaltyEntry is one append-only movement on a loyalty account.
type LoyaltyEntry struct {
	Kind      string    `bson:"kind" json:"kind"` // earned | redeemed
	Amount    int       `bson:"amount" json:"amount"`
	Reason    string    `bson:"reason" json:"reason"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// LoyaltyAccount keeps the running balance and its full history.
// Invariant: Balance equals earned minus redeemed over History.
type LoyaltyAccount struct {
	Balance int            `bson:"balance" json:"balance"`
	History []LoyaltyEntry `bson:"history,omitempty" json:"history,omitempty"`
}
