package requestRepo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servifix/models"
)

const earthRadiusKm = 6371.0

func openRequestFilter(categories []string) bson.M {
	return bson.M{
		"status":   bson.M{"$in": []string{models.RequestPending, models.RequestQuoted}},
		"category": bson.M{"$in": categories},
	}
}

// OpenNear runs a $geoNear aggregation over open requests, returning
// ascending-distance matches for a technician's feed.
func (r *MongoRequestRepo) OpenNear(criteria OpenRequestSearchCriteria) ([]RequestMatch, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	var pipeline mongo.Pipeline
	pipeline = append(pipeline, bson.D{
		{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: criteria.Origin.Coordinates},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "spherical", Value: true},
			{Key: "maxDistance", Value: criteria.RadiusKm * 1000},
			{Key: "key", Value: "location"},
		}},
	})
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: openRequestFilter(criteria.Categories)}})
	if criteria.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: criteria.Limit}})
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("geoNear request query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		models.ServiceRequest `bson:",inline"`
		DistanceMeters        float64 `bson:"distance"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}

	matches := make([]RequestMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, RequestMatch{
			Request:    row.ServiceRequest,
			DistanceKm: row.DistanceMeters / 1000,
		})
	}
	return matches, nil
}

// OpenWithinRadius runs a $centerSphere containment query, unordered.
func (r *MongoRequestRepo) OpenWithinRadius(criteria OpenRequestSearchCriteria) ([]models.ServiceRequest, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := openRequestFilter(criteria.Categories)
	filter["location"] = bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{criteria.Origin.Coordinates, criteria.RadiusKm / earthRadiusKm},
		},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("centerSphere request query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return requests, nil
}

// OpenByCategories returns all open requests for the categories.
func (r *MongoRequestRepo) OpenByCategories(categories []string) ([]models.ServiceRequest, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, openRequestFilter(categories))
	if err != nil {
		return nil, fmt.Errorf("category request query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return requests, nil
}
