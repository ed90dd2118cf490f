package reservation

import (
	"context"

	"footyreserve/models"
)

// JoinInput carries a user's request to join a match.
type JoinInput struct {
	TeamID   string `json:"teamId"`
	Password string `json:"password"`
}

// PaymentInitInput carries a spot-purchase request.
type PaymentInitInput struct {
	MatchID    string `json:"matchId"`
	SpotBooked []int  `json:"spotBooked"`
}

// PaymentInitResult is returned to the caller so the client can
// complete the Stripe payment flow.
type PaymentInitResult struct {
	PaymentID    string  `json:"paymentId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	SpotBooked   []int   `json:"spotBooked"`
}

// ReservationService coordinates joining a match and initiating spot payments.
type ReservationService interface {
	Join(ctx context.Context, userID, matchID string, in JoinInput) (*models.Booking, error)
	InitiatePayment(ctx context.Context, userID string, in PaymentInitInput) (*PaymentInitResult, error)
	// CancelPayment abandons a PENDING payment: the gateway intent is
	// canceled and the reserved spots released.
	CancelPayment(ctx context.Context, userID, paymentID string) error
	// SweepStale reconciles abandoned PENDING payments for a match
	// against gateway truth, releasing their spots. Returns the number
	// of payments swept.
	SweepStale(ctx context.Context, matchID string) (int, error)
	// SweepAll sweeps every match with stale pending payments.
	SweepAll(ctx context.Context) error
	UserUpcomingMatches(ctx context.Context, userID string) ([]models.Match, error)
	PaymentStatus(ctx context.Context, userID, paymentID string) (*models.Payment, error)
}
