// Package matching selects notification targets for a new request and
// builds the technician-side feed of nearby open requests.
package matching

import (
	"sort"

	"go.uber.org/zap"

	"servifix/config"
	requestRepo "servifix/database/repository/request"
	userRepo "servifix/database/repository/user"
	"servifix/models"
	"servifix/services/apperr"
)

// RankedTechnician is a candidate technician with its computed distance.
// DistanceKm is -1 when the request carries no origin and ranking fell back
// to reputation.
type RankedTechnician struct {
	Technician models.User `json:"technician"`
	DistanceKm float64     `json:"distance_km"`
}

// RankedRequest is an open request visible to a technician, with distance.
type RankedRequest struct {
	Request    models.ServiceRequest `json:"request"`
	DistanceKm float64               `json:"distance_km"`
}

// MatcherService produces ranked candidate sets for both sides of the
// marketplace.
type MatcherService interface {
	// MatchTechnicians returns eligible technicians for a request in
	// ascending distance order (or descending reputation without origin).
	MatchTechnicians(request *models.ServiceRequest) ([]RankedTechnician, error)
	// AvailableRequests returns open requests within the technician's
	// effective radius, nearest first.
	AvailableRequests(technician *models.User) ([]RankedRequest, error)
}

// DefaultMatcherService implements MatcherService over the Mongo
// repositories with degrading fallback strategies: proximity index, then
// spherical-cap containment, then a full category scan, each filtered and
// sorted client-side by Haversine where the index gave no order.
type DefaultMatcherService struct {
	UserRepo    userRepo.UserRepository
	RequestRepo requestRepo.RequestRepository
}

func (s *DefaultMatcherService) baseRadiusKm(urgency string) float64 {
	if urgency == models.UrgencyEmergency {
		return config.AppConfig.EmergencySearchRadiusKm
	}
	return config.AppConfig.BaseSearchRadiusKm
}

// MatchTechnicians selects the notification targets for a request.
func (s *DefaultMatcherService) MatchTechnicians(request *models.ServiceRequest) ([]RankedTechnician, error) {
	if request.Category == "" {
		return nil, apperr.Validation("request has no category")
	}

	emergencyOnly := request.IsEmergency()

	// Without an origin there is nothing to measure: rank by reputation.
	if request.Location.IsZero() {
		techs, err := s.UserRepo.TechniciansByCategory(request.Category, emergencyOnly)
		if err != nil {
			return nil, apperr.Infra("technician lookup failed: %v", err)
		}
		sortByReputation(techs)
		ranked := make([]RankedTechnician, 0, len(techs))
		for _, tech := range techs {
			ranked = append(ranked, RankedTechnician{Technician: tech, DistanceKm: -1})
		}
		return ranked, nil
	}

	criteria := userRepo.TechnicianSearchCriteria{
		Category:      request.Category,
		Origin:        request.Location,
		RadiusKm:      s.baseRadiusKm(request.Urgency),
		EmergencyOnly: emergencyOnly,
	}

	// Strategy 1: proximity index, already in ascending distance order.
	matches, err := s.UserRepo.NearbyTechnicians(criteria)
	if err == nil {
		ranked := make([]RankedTechnician, 0, len(matches))
		for _, m := range matches {
			ranked = append(ranked, RankedTechnician{Technician: m.User, DistanceKm: round2(m.DistanceKm)})
		}
		return ranked, nil
	}
	zap.L().Warn("proximity index query failed, falling back to centerSphere",
		zap.String("request_id", request.ID), zap.Error(err))

	// Strategy 2: spherical-cap containment, Haversine-sorted here.
	within, err := s.UserRepo.TechniciansWithinRadius(criteria)
	if err == nil {
		return rankTechniciansByDistance(within, request.Location, 0), nil
	}
	zap.L().Warn("centerSphere query failed, falling back to category scan",
		zap.String("request_id", request.ID), zap.Error(err))

	// Strategy 3: unfiltered category scan, Haversine-filtered and sorted.
	techs, err := s.UserRepo.TechniciansByCategory(request.Category, emergencyOnly)
	if err != nil {
		return nil, apperr.Infra("technician lookup failed: %v", err)
	}
	return rankTechniciansByDistance(techs, request.Location, criteria.RadiusKm), nil
}

// AvailableRequests builds the technician's feed. The effective radius is
// the request-type base plus the technician's membership-tier bonus.
func (s *DefaultMatcherService) AvailableRequests(technician *models.User) ([]RankedRequest, error) {
	if !technician.IsTechnician() {
		return nil, apperr.Unauthorized("only technicians have a request feed")
	}
	if len(technician.Specialties) == 0 {
		return []RankedRequest{}, nil
	}
	if technician.BaseLocation.IsZero() {
		// No base location: fall back to an unfiltered category listing.
		requests, err := s.RequestRepo.OpenByCategories(technician.Specialties)
		if err != nil {
			return nil, apperr.Infra("request lookup failed: %v", err)
		}
		ranked := make([]RankedRequest, 0, len(requests))
		for _, req := range requests {
			ranked = append(ranked, RankedRequest{Request: req, DistanceKm: -1})
		}
		return ranked, nil
	}

	radius := config.AppConfig.BaseSearchRadiusKm + models.TierRadiusBonusKm(technician.MembershipTier)
	criteria := requestRepo.OpenRequestSearchCriteria{
		Categories: technician.Specialties,
		Origin:     technician.BaseLocation,
		RadiusKm:   radius,
	}

	matches, err := s.RequestRepo.OpenNear(criteria)
	if err == nil {
		ranked := make([]RankedRequest, 0, len(matches))
		for _, m := range matches {
			ranked = append(ranked, RankedRequest{Request: m.Request, DistanceKm: round2(m.DistanceKm)})
		}
		return ranked, nil
	}
	zap.L().Warn("proximity index feed query failed, falling back to centerSphere",
		zap.String("technician_id", technician.ID), zap.Error(err))

	within, err := s.RequestRepo.OpenWithinRadius(criteria)
	if err == nil {
		return rankRequestsByDistance(within, technician.BaseLocation, 0), nil
	}
	zap.L().Warn("centerSphere feed query failed, falling back to category scan",
		zap.String("technician_id", technician.ID), zap.Error(err))

	requests, err := s.RequestRepo.OpenByCategories(technician.Specialties)
	if err != nil {
		return nil, apperr.Infra("request lookup failed: %v", err)
	}
	return rankRequestsByDistance(requests, technician.BaseLocation, radius), nil
}

// rankTechniciansByDistance computes Haversine distances from origin,
// drops candidates outside maxKm (when maxKm > 0) and sorts nearest first.
func rankTechniciansByDistance(techs []models.User, origin models.GeoPoint, maxKm float64) []RankedTechnician {
	ranked := make([]RankedTechnician, 0, len(techs))
	for _, tech := range techs {
		if tech.BaseLocation.IsZero() {
			continue
		}
		d := HaversineKm(origin, tech.BaseLocation)
		if maxKm > 0 && d > maxKm {
			continue
		}
		ranked = append(ranked, RankedTechnician{Technician: tech, DistanceKm: d})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

func rankRequestsByDistance(requests []models.ServiceRequest, origin models.GeoPoint, maxKm float64) []RankedRequest {
	ranked := make([]RankedRequest, 0, len(requests))
	for _, req := range requests {
		if req.Location.IsZero() {
			continue
		}
		d := HaversineKm(origin, req.Location)
		if maxKm > 0 && d > maxKm {
			continue
		}
		ranked = append(ranked, RankedRequest{Request: req, DistanceKm: d})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

func sortByReputation(techs []models.User) {
	sort.SliceStable(techs, func(i, j int) bool {
		if techs[i].Rating != techs[j].Rating {
			return techs[i].Rating > techs[j].Rating
		}
		return techs[i].ReviewCount > techs[j].ReviewCount
	})
}
