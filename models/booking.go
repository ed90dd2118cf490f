package models

import "time"

// Booking statuses.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

// Booking records one user's relationship to one match. At most one
// booking exists per (match, user) pair. SpotBooked is a denormalized
// view of the spots this user has paid for; it is only updated inside
// the settlement transaction that also updates the match.
type Booking struct {
	ID         string    `bson:"id" json:"id"`
	MatchID    string    `bson:"match_id" json:"matchId"`
	UserID     string    `bson:"user_id" json:"userId"`
	Status     string    `bson:"status" json:"status"`
	AmountPaid float64   `bson:"amount_paid" json:"amountPaid"`
	SpotBooked []int     `bson:"spot_booked" json:"spotBooked"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasSpot reports whether this booking already owns the given spot number.
func (b *Booking) HasSpot(spot int) bool {
	for _, s := range b.SpotBooked {
		if s == spot {
			return true
		}
	}
	return false
}
