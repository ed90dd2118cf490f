package matchRepo

import (
	"context"
	"fmt"
	"time"

	"footyreserve/models"

	"go.mongodb.org/mongo-driver/bson"
)

// AcquirePayoutLock sets the in-progress flag with a compare-and-set
// on payout_initiated != true. Concurrent payout attempts race on this
// single conditional update; the loser gets ErrPayoutLocked. The
// payout_ref guard keeps a caller holding a stale read from
// re-acquiring the lock after a completed payout cleared the flag.
func (r *MongoMatchRepo) AcquirePayoutLock(ctx context.Context, matchID string) error {
	now := time.Now()
	result, err := r.coll.UpdateOne(ctx,
		bson.M{
			"id":               matchID,
			"payout_initiated": bson.M{"$ne": true},
			"payout_ref":       bson.M{"$in": bson.A{nil, ""}},
		},
		bson.M{
			"$set": bson.M{"payout_initiated": true, "updated_at": now},
			"$push": bson.M{"payout_history": models.PayoutRecord{
				Status: models.PayoutInitiated,
				Date:   now,
			}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to acquire payout lock on match %s: %w", matchID, err)
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, matchID); getErr != nil {
			return getErr
		}
		return ErrPayoutLocked
	}
	return nil
}

func (r *MongoMatchRepo) ReleasePayoutLock(ctx context.Context, matchID string, record models.PayoutRecord) error {
	if record.Date.IsZero() {
		record.Date = time.Now()
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID},
		bson.M{
			"$set":  bson.M{"payout_initiated": false, "updated_at": time.Now()},
			"$push": bson.M{"payout_history": record},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release payout lock on match %s: %w", matchID, err)
	}
	return nil
}

func (r *MongoMatchRepo) CompletePayout(ctx context.Context, matchID, payoutRef string, amount float64) error {
	now := time.Now()
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"id": matchID},
		bson.M{
			"$set": bson.M{
				"status":           models.MatchStatusCompleted,
				"payout_ref":       payoutRef,
				"payout_amount":    amount,
				"payout_date":      now,
				"payout_initiated": false,
				"updated_at":       now,
			},
			"$push": bson.M{"payout_history": models.PayoutRecord{
				Status:    models.PayoutSuccess,
				Message:   fmt.Sprintf("Payout of £%.2f successful", amount),
				Date:      now,
				PayoutRef: payoutRef,
			}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record payout completion on match %s: %w", matchID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
