package paymentRepo

import (
	"context"
	"errors"
	"time"

	"footyreserve/models"
)

// ErrNotFound means no payment matched the lookup.
var ErrNotFound = errors.New("payment not found")

// PaymentRepository defines data access for payment records. Payments
// are append-only evidence: status fields mutate, documents are never
// deleted.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByMatch(ctx context.Context, matchID string) ([]models.Payment, error)
	SetStripeIntentID(ctx context.Context, id, intentID string) error
	MarkSuccess(ctx context.Context, id, chargeID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	MarkCanceled(ctx context.Context, id, reason string) error
	// FindStalePending returns PENDING payments for a match created
	// before the given cutoff.
	FindStalePending(ctx context.Context, matchID string, cutoff time.Time) ([]models.Payment, error)
	// DistinctStaleMatches lists match ids that have at least one
	// PENDING payment older than the cutoff.
	DistinctStaleMatches(ctx context.Context, cutoff time.Time) ([]string, error)
	// SumSuccessful totals the amounts of all SUCCESS payments for a match.
	SumSuccessful(ctx context.Context, matchID string) (float64, error)
}
