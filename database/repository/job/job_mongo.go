package jobRepo

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

// MongoJobRepo implements JobRepository using MongoDB.
type MongoJobRepo struct {
	coll *mongo.Collection
}

// NewMongoJobRepo creates a new instance of JobRepository using MongoDB.
func NewMongoJobRepo() JobRepository {
	repo := &MongoJobRepo{coll: database.Collection("jobs")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure job indexes: %v\n", err)
	}
	return repo
}

func newContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// Create inserts a new job document.
func (r *MongoJobRepo) Create(job *models.Job) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *MongoJobRepo) GetByID(id string) (*models.Job, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	var job models.Job
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to fetch job with id %s: %w", id, err)
	}
	return &job, nil
}

func (r *MongoJobRepo) ListByClient(clientID string) ([]models.Job, error) {
	return r.list(bson.M{"client_id": clientID})
}

func (r *MongoJobRepo) ListByTechnician(technicianID string) ([]models.Job, error) {
	return r.list(bson.M{"technician_id": technicianID})
}

func (r *MongoJobRepo) list(filter bson.M) ([]models.Job, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, nil
}

// Transition flips the status with a precondition on the current status,
// appends the history entry and applies the stamps in one update.
func (r *MongoJobRepo) Transition(id, from, to string, entry models.StatusHistoryEntry, stamps TransitionStamps) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"status": to, "updated_at": entry.At}
	if stamps.StartedAt != nil {
		set["started_at"] = stamps.StartedAt
	}
	if stamps.FinishedAt != nil {
		set["finished_at"] = stamps.FinishedAt
	}
	if stamps.ActualDuration != nil {
		set["actual_duration"] = stamps.ActualDuration
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": set, "$push": bson.M{"history": entry}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition job %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

// AppendHistory pushes a history entry onto the job, leaving the status
// untouched.
func (r *MongoJobRepo) AppendHistory(id string, entry models.StatusHistoryEntry) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$push": bson.M{"history": entry},
			"$set":  bson.M{"updated_at": entry.At},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append history for job %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("job with id %s not found", id)
	}
	return nil
}

// ReleaseEscrow moves a completed job's escrow to released. The payment
// status precondition keeps a double approval from paying twice.
func (r *MongoJobRepo) ReleaseEscrow(id string, amount float64, at time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{
			"id":             id,
			"status":         models.JobCompleted,
			"payment.status": bson.M{"$in": []string{models.PaymentPending, models.PaymentRetained}},
		},
		bson.M{"$set": bson.M{
			"payment.status":          models.PaymentReleased,
			"payment.released_amount": amount,
			"payment.released_at":     at,
			"updated_at":              at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to release escrow for job %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

// OpenDispute flips completed->disputed, stores the dispute and marks the
// payment partial with the auto-released half.
func (r *MongoJobRepo) OpenDispute(id string, dispute models.Dispute, entry models.StatusHistoryEntry, autoRelease float64) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{
			"id":             id,
			"status":         models.JobCompleted,
			"payment.status": bson.M{"$in": []string{models.PaymentPending, models.PaymentRetained}},
		},
		bson.M{
			"$set": bson.M{
				"status":                  models.JobDisputed,
				"dispute":                 dispute,
				"payment.status":          models.PaymentPartial,
				"payment.released_amount": autoRelease,
				"payment.released_at":     entry.At,
				"updated_at":              entry.At,
			},
			"$push": bson.M{"history": entry},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to open dispute on job %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}
