package userRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servifix/database"
	"servifix/models"
)

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
func NewMongoUserRepo() UserRepository {
	repo := &MongoUserRepo{coll: database.Collection("users")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure user indexes: %v\n", err)
	}
	return repo
}

func newContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func (r *MongoUserRepo) GetByID(id string) (*models.User, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	var user models.User
	filter := bson.M{"id": id}
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to fetch user with id %s: %w", id, err)
	}
	return &user, nil
}

// Create inserts a new user document.
func (r *MongoUserRepo) Create(user *models.User) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update replaces an existing user document.
func (r *MongoUserRepo) Update(user *models.User) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": user.ID}
	update := bson.M{"$set": user}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user with id %s: %w", user.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found", user.ID)
	}
	return nil
}

// CreditFunds increases a technician's accrued funds balance.
func (r *MongoUserRepo) CreditFunds(id string, amount float64) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "role": models.RoleTechnician},
		bson.M{"$inc": bson.M{"accrued_funds": amount}},
	)
	if err != nil {
		return fmt.Errorf("failed to credit funds for technician %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("technician with id %s not found", id)
	}
	return nil
}

// AppendLoyalty appends a loyalty history entry and moves the balance by
// delta in a single update, keeping balance = sum(history). A negative
// delta adds a balance guard to the filter, so two racing redemptions of
// the same points cannot both match.
func (r *MongoUserRepo) AppendLoyalty(id string, entry models.LoyaltyEntry, delta int) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "role": models.RoleClient}
	if delta < 0 {
		filter["loyalty.balance"] = bson.M{"$gte": -delta}
	}
	result, err := r.coll.UpdateOne(ctx, filter,
		bson.M{
			"$inc":  bson.M{"loyalty.balance": delta},
			"$push": bson.M{"loyalty.history": entry},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to append loyalty entry for client %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}
