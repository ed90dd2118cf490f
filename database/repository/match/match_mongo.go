package matchRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"footyreserve/database"
	"footyreserve/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMatchRepo implements MatchRepository using MongoDB.
type MongoMatchRepo struct {
	coll *mongo.Collection
}

// NewMongoMatchRepo creates a new instance of MatchRepository using MongoDB.
func NewMongoMatchRepo() MatchRepository {
	coll := database.DB().Collection("matches")
	repo := &MongoMatchRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create match indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoMatchRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "team_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "admin_id", Value: 1}}},
		{Keys: bson.D{{Key: "match_date", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoMatchRepo) Create(ctx context.Context, match *models.Match) error {
	now := time.Now()
	match.CreatedAt = now
	match.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, match); err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *MongoMatchRepo) GetByID(ctx context.Context, id string) (*models.Match, error) {
	var match models.Match
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&match); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch match with id %s: %w", id, err)
	}
	return &match, nil
}

func (r *MongoMatchRepo) GetByTeamID(ctx context.Context, teamID string) (*models.Match, error) {
	var match models.Match
	if err := r.coll.FindOne(ctx, bson.M{"team_id": teamID}).Decode(&match); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch match with team id %s: %w", teamID, err)
	}
	return &match, nil
}

func (r *MongoMatchRepo) Update(ctx context.Context, match *models.Match) error {
	match.UpdatedAt = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": match.ID}, bson.M{"$set": match})
	if err != nil {
		return fmt.Errorf("failed to update match with id %s: %w", match.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMatchRepo) CountActiveByAdmin(ctx context.Context, adminID string) (int, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"admin_id": adminID,
		"status":   models.MatchStatusActive,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active matches for admin %s: %w", adminID, err)
	}
	return int(count), nil
}

func (r *MongoMatchRepo) ListUpcomingByAdmin(ctx context.Context, adminID string, after time.Time) ([]models.Match, error) {
	filter := bson.M{
		"admin_id":   adminID,
		"match_date": bson.M{"$gte": after},
	}
	opts := options.Find().SetSort(bson.D{{Key: "match_date", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for admin %s: %w", adminID, err)
	}
	defer cursor.Close(ctx)

	var matches []models.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}
	return matches, nil
}

func (r *MongoMatchRepo) AddToBlacklist(ctx context.Context, matchID, userID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID},
		bson.M{"$addToSet": bson.M{"blacklist": userID}},
	)
	if err != nil {
		return fmt.Errorf("failed to blacklist user %s on match %s: %w", userID, matchID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMatchRepo) SetStripeAccount(ctx context.Context, matchID, accountID string) error {
	now := time.Now()
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID},
		bson.M{"$set": bson.M{
			"account_details.stripe_account_id": accountID,
			"account_details.connected_at":      now,
			"updated_at":                        now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set stripe account on match %s: %w", matchID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
