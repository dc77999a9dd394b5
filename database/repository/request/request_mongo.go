package requestRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servifix/database"
	"servifix/models"
)

// MongoRequestRepo implements RequestRepository using MongoDB.
type MongoRequestRepo struct {
	coll *mongo.Collection
}

// NewMongoRequestRepo creates a new instance of RequestRepository using MongoDB.
func NewMongoRequestRepo() RequestRepository {
	repo := &MongoRequestRepo{coll: database.Collection("service_requests")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure request indexes: %v\n", err)
	}
	return repo
}

func newContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// Create inserts a new request document.
func (r *MongoRequestRepo) Create(request *models.ServiceRequest) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

func (r *MongoRequestRepo) GetByID(id string) (*models.ServiceRequest, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	var request models.ServiceRequest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&request); err != nil {
		return nil, fmt.Errorf("failed to fetch request with id %s: %w", id, err)
	}
	return &request, nil
}

func (r *MongoRequestRepo) ListByClient(clientID string) ([]models.ServiceRequest, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"client_id": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var requests []models.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return requests, nil
}

// SetStatusIf performs a conditional status flip. The single UpdateOne with
// a status precondition is what makes concurrent accepts exactly-once: only
// one caller observes MatchedCount == 1.
func (r *MongoRequestRepo) SetStatusIf(id string, from []string, to string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update status for request %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

// SetNotified stores the technicians the matcher picked for this request.
func (r *MongoRequestRepo) SetNotified(id string, notified []models.NotifiedTechnician) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"notified": notified, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set notified list for request %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("request with id %s not found", id)
	}
	return nil
}

// MarkResponded flips the responded flag for one notified technician.
func (r *MongoRequestRepo) MarkResponded(requestID, technicianID string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": requestID, "notified.technician_id": technicianID},
		bson.M{"$set": bson.M{"notified.$.responded": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark technician %s responded on request %s: %w", technicianID, requestID, err)
	}
	return nil
}
