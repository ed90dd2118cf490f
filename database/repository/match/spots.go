package matchRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"footyreserve/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReserveSpots is the core concurrency-control primitive. The filter
// requires that none of the requested numbers are present in the
// booked-spot set, and the update adds all of them, in one
// FindOneAndUpdate. Two overlapping concurrent reservations therefore
// have exactly one winner.
func (r *MongoMatchRepo) ReserveSpots(ctx context.Context, matchID string, spots []int) error {
	filter := bson.M{
		"id":           matchID,
		"booked_spots": bson.M{"$nin": spots},
	}
	update := bson.M{
		"$addToSet": bson.M{"booked_spots": bson.M{"$each": spots}},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	err := r.coll.FindOneAndUpdate(ctx, filter, update).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either the match does not exist or a spot is taken;
			// disambiguate so callers can report the right error.
			if _, getErr := r.GetByID(ctx, matchID); getErr != nil {
				return getErr
			}
			return ErrSpotConflict
		}
		return fmt.Errorf("failed to reserve spots on match %s: %w", matchID, err)
	}
	return nil
}

// ReleaseSpots removes the given spot numbers unconditionally. Used on
// payment failure, cancellation and stale-reservation cleanup.
func (r *MongoMatchRepo) ReleaseSpots(ctx context.Context, matchID string, spots []int) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID},
		bson.M{
			"$pull": bson.M{"booked_spots": bson.M{"$in": spots}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release spots on match %s: %w", matchID, err)
	}
	return nil
}

func (r *MongoMatchRepo) ConfirmSpotsPaid(ctx context.Context, matchID string, count int) (*models.Match, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var match models.Match
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"id": matchID},
		bson.M{
			"$inc": bson.M{"spots_booked": count},
			"$set": bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to confirm paid spots on match %s: %w", matchID, err)
	}
	return &match, nil
}

// SetStatusIf is a compare-and-set on the status field.
func (r *MongoMatchRepo) SetStatusIf(ctx context.Context, matchID string, from []string, to string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to transition match %s to %s: %w", matchID, to, err)
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, matchID); getErr != nil {
			return getErr
		}
		return ErrStatusConflict
	}
	return nil
}

// MarkPaidUp promotes the match to PAID_UP unless it has already been
// promoted past that point. This is an idempotence barrier, not a
// mutex: redundant invocations fail cleanly with ErrStatusConflict.
func (r *MongoMatchRepo) MarkPaidUp(ctx context.Context, matchID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{
			"id":     matchID,
			"status": bson.M{"$nin": []string{models.MatchStatusPaidUp, models.MatchStatusCompleted}},
		},
		bson.M{"$set": bson.M{"status": models.MatchStatusPaidUp, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark match %s paid up: %w", matchID, err)
	}
	if result.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}
