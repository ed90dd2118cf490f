package models

import "time"

// Match status lifecycle. Transitions are monotonic:
// ACTIVE -> FULLY_BOOKED -> PAID_UP -> COMPLETED, with CANCELLED
// reachable from ACTIVE or FULLY_BOOKED only.
const (
	MatchStatusActive      = "ACTIVE"
	MatchStatusFullyBooked = "FULLY_BOOKED"
	MatchStatusPaidUp      = "PAID_UP"
	MatchStatusCompleted   = "COMPLETED"
	MatchStatusCancelled   = "CANCELLED"
)

// Payout history entry statuses.
const (
	PayoutInitiated   = "INITIATED"
	PayoutSuccess     = "SUCCESS"
	PayoutFailed      = "FAILED"
	PayoutDiscrepancy = "DISCREPANCY"
)

// Pricing is the per-spot price breakdown embedded on a match.
// FinalPricePerSpot is what a player pays; BasePricePerSpot is what
// the organizer nets after platform and Stripe fees.
type Pricing struct {
	BasePricePerSpot   float64 `bson:"base_price_per_spot" json:"basePricePerSpot"`
	PlatformFeePerSpot float64 `bson:"platform_fee_per_spot" json:"platformFeePerSpot"`
	StripeFeePerSpot   float64 `bson:"stripe_fee_per_spot" json:"stripeFeePerSpot"`
	FinalPricePerSpot  float64 `bson:"final_price_per_spot" json:"finalPricePerSpot"`
	PlatformFeeRate    float64 `bson:"platform_fee_rate" json:"platformFeeRate"`
	StripeFeeRate      float64 `bson:"stripe_fee_rate" json:"stripeFeeRate"`
	StripeFixedFee     float64 `bson:"stripe_fixed_fee" json:"stripeFixedFee"`
	TotalExpected      float64 `bson:"total_expected" json:"totalExpected"`
}

// AccountDetails holds the organizer's payout destination.
type AccountDetails struct {
	AccountName     string     `bson:"account_name" json:"accountName"`
	AccountNumber   string     `bson:"account_number" json:"accountNumber"`
	BankName        string     `bson:"bank_name" json:"bankName"`
	SortCode        string     `bson:"sort_code,omitempty" json:"sortCode,omitempty"`
	StripeAccountID string     `bson:"stripe_account_id,omitempty" json:"stripeAccountId,omitempty"`
	ConnectedAt     *time.Time `bson:"connected_at,omitempty" json:"connectedAt,omitempty"`
}

// PayoutRecord is one entry in a match's payout history log.
type PayoutRecord struct {
	Status    string    `bson:"status" json:"status"`
	Message   string    `bson:"message,omitempty" json:"message,omitempty"`
	Date      time.Time `bson:"date" json:"date"`
	PayoutRef string    `bson:"payout_ref,omitempty" json:"payoutRef,omitempty"`
}

// Match is a bookable event with a fixed number of numbered spots.
// BookedSpots is the single source of truth for which spot numbers are
// claimed; SpotsBooked counts confirmed-paid spots only.
type Match struct {
	ID              string         `bson:"id" json:"id"`
	TeamID          string         `bson:"team_id" json:"teamId"`
	AdminID         string         `bson:"admin_id" json:"adminId"`
	PitchName       string         `bson:"pitch_name" json:"pitchName"`
	MatchDate       time.Time      `bson:"match_date" json:"matchDate"`
	MatchTime       string         `bson:"match_time" json:"matchTime"`
	Spots           int            `bson:"spots" json:"spots"`
	SpotsBooked     int            `bson:"spots_booked" json:"spotsBooked"`
	BookedSpots     []int          `bson:"booked_spots" json:"bookedSpots"`
	Pricing         Pricing        `bson:"pricing" json:"pricing"`
	Password        string         `bson:"password" json:"-"` // bcrypt hash, never returned
	Status          string         `bson:"status" json:"status"`
	Blacklist       []string       `bson:"blacklist,omitempty" json:"-"`
	AccountDetails  AccountDetails `bson:"account_details" json:"accountDetails"`
	AutoPayout      bool           `bson:"auto_payout" json:"autoPayout"`
	PayoutInitiated bool           `bson:"payout_initiated" json:"payoutInitiated"`
	PayoutRef       string         `bson:"payout_ref,omitempty" json:"payoutRef,omitempty"`
	PayoutAmount    float64        `bson:"payout_amount,omitempty" json:"payoutAmount,omitempty"`
	PayoutDate      *time.Time     `bson:"payout_date,omitempty" json:"payoutDate,omitempty"`
	PayoutHistory   []PayoutRecord `bson:"payout_history,omitempty" json:"payoutHistory,omitempty"`
	CreatedAt       time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updatedAt"`
}

// IsBlacklisted reports whether the given user is barred from this match.
func (m *Match) IsBlacklisted(userID string) bool {
	for _, id := range m.Blacklist {
		if id == userID {
			return true
		}
	}
	return false
}

// AvailableSpots returns the number of spots not yet confirmed paid.
func (m *Match) AvailableSpots() int {
	return m.Spots - m.SpotsBooked
}
