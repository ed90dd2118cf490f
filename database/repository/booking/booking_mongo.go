package bookingRepo

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

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo() BookingRepository {
	coll := database.DB().Collection("bookings")
	repo := &MongoBookingRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// One booking per (match, user) pair.
		{Keys: bson.D{{Key: "match_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) GetByMatchAndUser(ctx context.Context, matchID, userID string) (*models.Booking, error) {
	var booking models.Booking
	filter := bson.M{"match_id": matchID, "user_id": userID}
	if err := r.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking for match %s user %s: %w", matchID, userID, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) ListByMatch(ctx context.Context, matchID string) ([]models.Booking, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"match_id": matchID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for match %s: %w", matchID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// ListUpcomingMatchesByUser joins bookings against matches and returns
// the future matches this user has joined, nearest first.
func (r *MongoBookingRepo) ListUpcomingMatchesByUser(ctx context.Context, userID string) ([]models.Match, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user_id": userID}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "matches",
			"localField":   "match_id",
			"foreignField": "id",
			"as":           "match",
		}}},
		bson.D{{Key: "$unwind", Value: "$match"}},
		bson.D{{Key: "$match", Value: bson.M{
			"match.match_date": bson.M{"$gte": time.Now()},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"match.match_date": 1}}},
		bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$match"}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate upcoming matches for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var matches []models.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode upcoming matches: %w", err)
	}
	return matches, nil
}

func (r *MongoBookingRepo) ApplySettlement(ctx context.Context, bookingID string, amount float64, spots []int) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": bookingID},
		bson.M{
			"$inc":      bson.M{"amount_paid": amount},
			"$addToSet": bson.M{"spot_booked": bson.M{"$each": spots}},
			"$set":      bson.M{"status": models.BookingStatusConfirmed, "updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to apply settlement to booking %s: %w", bookingID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUnpaid is the only path that ever deletes a booking, and it is
// guarded so confirmed bookings can never be removed.
func (r *MongoBookingRepo) DeleteUnpaid(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id, "amount_paid": 0})
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyPaid
	}
	return nil
}
