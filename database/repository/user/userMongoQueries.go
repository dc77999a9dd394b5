package userRepo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servifix/models"
)

const earthRadiusKm = 6371.0

func technicianMatchFilter(criteria TechnicianSearchCriteria) bson.M {
	filter := bson.M{
		"role":        models.RoleTechnician,
		"specialties": criteria.Category,
	}
	if criteria.EmergencyOnly {
		filter["available_for_emergency"] = true
	}
	return filter
}

// NearbyTechnicians runs a $geoNear aggregation bounded by the effective
// radius. Results come back in ascending distance order straight from the
// proximity index.
func (r *MongoUserRepo) NearbyTechnicians(criteria TechnicianSearchCriteria) ([]TechnicianMatch, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	var pipeline mongo.Pipeline

	// $geoNear must come first to filter+sort by distance.
	pipeline = append(pipeline, bson.D{
		{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: criteria.Origin.Coordinates},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "spherical", Value: true},
			{Key: "maxDistance", Value: criteria.RadiusKm * 1000},
			{Key: "key", Value: "base_location"},
		}},
	})
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: technicianMatchFilter(criteria)}})
	if criteria.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: criteria.Limit}})
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("geoNear technician query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		models.User    `bson:",inline"`
		DistanceMeters float64 `bson:"distance"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode technicians: %w", err)
	}

	matches := make([]TechnicianMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, TechnicianMatch{
			User:       row.User,
			DistanceKm: row.DistanceMeters / 1000,
		})
	}
	return matches, nil
}

// TechniciansWithinRadius runs a $centerSphere containment query over the
// same radius. Mongo gives no ordering here; callers sort client-side.
func (r *MongoUserRepo) TechniciansWithinRadius(criteria TechnicianSearchCriteria) ([]models.User, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := technicianMatchFilter(criteria)
	filter["base_location"] = bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{criteria.Origin.Coordinates, criteria.RadiusKm / earthRadiusKm},
		},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("centerSphere technician query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var technicians []models.User
	if err := cursor.All(ctx, &technicians); err != nil {
		return nil, fmt.Errorf("failed to decode technicians: %w", err)
	}
	return technicians, nil
}

// TechniciansByCategory returns all technicians offering a category with no
// location filter at all.
func (r *MongoUserRepo) TechniciansByCategory(category string, emergencyOnly bool) ([]models.User, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := technicianMatchFilter(TechnicianSearchCriteria{Category: category, EmergencyOnly: emergencyOnly})
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("category technician query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var technicians []models.User
	if err := cursor.All(ctx, &technicians); err != nil {
		return nil, fmt.Errorf("failed to decode technicians: %w", err)
	}
	return technicians, nil
}
