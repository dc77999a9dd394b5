package quoteRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servifix/database"
	"servifix/models"
)

// MongoQuoteRepo implements QuoteRepository using MongoDB.
type MongoQuoteRepo struct {
	coll *mongo.Collection
}

// NewMongoQuoteRepo creates a new instance of QuoteRepository using MongoDB.
func NewMongoQuoteRepo() QuoteRepository {
	repo := &MongoQuoteRepo{coll: database.Collection("quotes")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure quote indexes: %v\n", err)
	}
	return repo
}

func newContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// Create inserts a new quote document.
func (r *MongoQuoteRepo) Create(quote *models.Quote) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, quote)
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return nil
}

func (r *MongoQuoteRepo) GetByID(id string) (*models.Quote, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	var quote models.Quote
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to fetch quote with id %s: %w", id, err)
	}
	return &quote, nil
}

func (r *MongoQuoteRepo) ListByRequest(requestID string) ([]models.Quote, error) {
	return r.list(bson.M{"request_id": requestID})
}

func (r *MongoQuoteRepo) ListByTechnician(technicianID string) ([]models.Quote, error) {
	return r.list(bson.M{"technician_id": technicianID})
}

func (r *MongoQuoteRepo) list(filter bson.M) ([]models.Quote, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer cursor.Close(ctx)

	var quotes []models.Quote
	if err := cursor.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}
	return quotes, nil
}

// ActiveByRequestAndTechnician returns the technician's active quote on the
// request, or nil when there is none.
func (r *MongoQuoteRepo) ActiveByRequestAndTechnician(requestID, technicianID string) (*models.Quote, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"request_id":    requestID,
		"technician_id": technicianID,
		"status":        bson.M{"$in": []string{models.QuotePending, models.QuoteAccepted}},
	}
	var quote models.Quote
	err := r.coll.FindOne(ctx, filter).Decode(&quote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active quote: %w", err)
	}
	return &quote, nil
}

// SetStatusIf performs a conditional status flip on one quote.
func (r *MongoQuoteRepo) SetStatusIf(id string, from []string, to, reason string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"status": to}
	if reason != "" {
		set["status_reason"] = reason
	}
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update status for quote %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

// CascadeNotSelected settles every rival pending quote on the request and
// returns the quotes it touched so the caller can notify their owners.
func (r *MongoQuoteRepo) CascadeNotSelected(requestID, exceptID, reason string) ([]models.Quote, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"request_id": requestID,
		"id":         bson.M{"$ne": exceptID},
		"status":     models.QuotePending,
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find rival quotes for request %s: %w", requestID, err)
	}
	var rivals []models.Quote
	if err := cursor.All(ctx, &rivals); err != nil {
		return nil, fmt.Errorf("failed to decode rival quotes: %w", err)
	}

	if _, err := r.coll.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"status": models.QuoteNotSelected, "status_reason": reason},
	}); err != nil {
		return nil, fmt.Errorf("failed to settle rival quotes for request %s: %w", requestID, err)
	}

	for i := range rivals {
		rivals[i].Status = models.QuoteNotSelected
		rivals[i].StatusReason = reason
	}
	return rivals, nil
}

// UpdateContent edits a quote while it is still pending.
func (r *MongoQuoteRepo) UpdateContent(id string, edit QuoteEdit) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.QuotePending},
		bson.M{"$set": bson.M{
			"price":     edit.Price,
			"duration":  edit.Duration,
			"materials": edit.Materials,
			"notes":     edit.Notes,
			"edited_at": edit.EditedAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to edit quote %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

// ExpireDue sweeps every pending quote past its validity deadline.
func (r *MongoQuoteRepo) ExpireDue(now time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateMany(ctx,
		bson.M{"status": models.QuotePending, "valid_until": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.QuoteExpired}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire due quotes: %w", err)
	}
	return result.ModifiedCount, nil
}

// ExpireDueForRequest sweeps one request's due quotes before a read.
func (r *MongoQuoteRepo) ExpireDueForRequest(requestID string, now time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"request_id": requestID, "status": models.QuotePending, "valid_until": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.QuoteExpired}},
	)
	if err != nil {
		return fmt.Errorf("failed to expire due quotes for request %s: %w", requestID, err)
	}
	return nil
}
