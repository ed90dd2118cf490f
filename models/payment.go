package models

import "time"

// Payment statuses. PENDING is the only non-terminal status; exactly
// one terminal status may ever be reached for a given payment.
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusSuccess  = "SUCCESS"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusCanceled = "CANCELED"
	PaymentStatusRefunded = "REFUNDED"
)

// Payment is one attempt to pay for a specific set of spot numbers
// within one booking. Payments are never deleted; they are the audit
// trail tying a spot request to a Stripe transaction.
type Payment struct {
	ID                    string    `bson:"id" json:"id"`
	BookingID             string    `bson:"booking_id" json:"bookingId"`
	MatchID               string    `bson:"match_id" json:"matchId"`
	UserID                string    `bson:"user_id" json:"userId"`
	Amount                float64   `bson:"amount" json:"amount"`
	Status                string    `bson:"status" json:"status"`
	TransactionRef        string    `bson:"transaction_ref" json:"transactionRef"`
	SpotBooked            []int     `bson:"spot_booked" json:"spotBooked"`
	StripePaymentIntentID string    `bson:"stripe_payment_intent_id,omitempty" json:"stripePaymentIntentId,omitempty"`
	StripeChargeID        string    `bson:"stripe_charge_id,omitempty" json:"stripeChargeId,omitempty"`
	FailureReason         string    `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	CreatedAt             time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `bson:"updated_at" json:"updatedAt"`
}

// Terminal reports whether the payment has reached a final status.
func (p *Payment) Terminal() bool {
	return p.Status != PaymentStatusPending
}
