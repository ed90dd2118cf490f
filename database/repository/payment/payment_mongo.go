package paymentRepo

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

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	coll := database.DB().Collection("payments")
	repo := &MongoPaymentRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create payment indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "match_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "stripe_payment_intent_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment with id %s: %w", id, err)
	}
	return &payment, nil
}

func (r *MongoPaymentRepo) ListByMatch(ctx context.Context, matchID string) ([]models.Payment, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"match_id": matchID})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for match %s: %w", matchID, err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

func (r *MongoPaymentRepo) SetStripeIntentID(ctx context.Context, id, intentID string) error {
	return r.setFields(ctx, id, bson.M{"stripe_payment_intent_id": intentID})
}

func (r *MongoPaymentRepo) MarkSuccess(ctx context.Context, id, chargeID string) error {
	return r.setFields(ctx, id, bson.M{
		"status":           models.PaymentStatusSuccess,
		"stripe_charge_id": chargeID,
	})
}

func (r *MongoPaymentRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.setFields(ctx, id, bson.M{
		"status":         models.PaymentStatusFailed,
		"failure_reason": reason,
	})
}

func (r *MongoPaymentRepo) MarkCanceled(ctx context.Context, id, reason string) error {
	return r.setFields(ctx, id, bson.M{
		"status":         models.PaymentStatusCanceled,
		"failure_reason": reason,
	})
}

func (r *MongoPaymentRepo) setFields(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPaymentRepo) FindStalePending(ctx context.Context, matchID string, cutoff time.Time) ([]models.Payment, error) {
	filter := bson.M{
		"match_id":   matchID,
		"status":     models.PaymentStatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale payments for match %s: %w", matchID, err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode stale payments: %w", err)
	}
	return payments, nil
}

func (r *MongoPaymentRepo) DistinctStaleMatches(ctx context.Context, cutoff time.Time) ([]string, error) {
	filter := bson.M{
		"status":     models.PaymentStatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	raw, err := r.coll.Distinct(ctx, "match_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale match ids: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MongoPaymentRepo) SumSuccessful(ctx context.Context, matchID string) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"match_id": matchID,
			"status":   models.PaymentStatusSuccess,
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum successful payments for match %s: %w", matchID, err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode payment sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
