package bookingRepo

import (
	"context"
	"errors"

	"footyreserve/models"
)

var (
	// ErrNotFound means no booking matched the lookup.
	ErrNotFound = errors.New("booking not found")
	// ErrAlreadyPaid means a forced removal was attempted on a booking
	// that has at least one settled payment.
	ErrAlreadyPaid = errors.New("booking has confirmed payments")
)

// BookingRepository defines data access for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByMatchAndUser(ctx context.Context, matchID, userID string) (*models.Booking, error)
	ListByMatch(ctx context.Context, matchID string) ([]models.Booking, error)
	// ListUpcomingMatchesByUser returns the matches a user has joined
	// whose date is still in the future.
	ListUpcomingMatchesByUser(ctx context.Context, userID string) ([]models.Match, error)
	// ApplySettlement increments the paid amount, adds the settled spot
	// numbers and marks the booking CONFIRMED, all in one update. Must
	// be called inside the settlement transaction.
	ApplySettlement(ctx context.Context, bookingID string, amount float64, spots []int) error
	// DeleteUnpaid removes a booking only while no payment has settled
	// against it; fails with ErrAlreadyPaid otherwise.
	DeleteUnpaid(ctx context.Context, id string) error
}
