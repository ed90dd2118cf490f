package match

import (
	"context"
	"time"

	"footyreserve/models"
)

// CreateMatchInput carries organizer input for a new match.
type CreateMatchInput struct {
	TeamID         string                `json:"teamId"`
	PitchName      string                `json:"pitchName"`
	MatchDate      time.Time             `json:"matchDate"`
	MatchTime      string                `json:"matchTime"`
	Spots          int                   `json:"spots"`
	TotalPayout    float64               `json:"totalPayout"`
	Password       string                `json:"password"`
	AutoPayout     bool                  `json:"autoPayout"`
	AccountDetails models.AccountDetails `json:"accountDetails"`
}

// UpdateMatchInput carries optional organizer edits. Nil fields are left unchanged.
type UpdateMatchInput struct {
	PitchName *string    `json:"pitchName,omitempty"`
	MatchDate *time.Time `json:"matchDate,omitempty"`
	MatchTime *string    `json:"matchTime,omitempty"`
	Password  *string    `json:"password,omitempty"`
}

// Finances is the admin-facing financial summary for a match.
type Finances struct {
	TotalSpots     int              `json:"totalSpots"`
	SpotsBooked    int              `json:"spotsBooked"`
	Pricing        models.Pricing   `json:"pricing"`
	TotalCollected float64          `json:"totalCollected"`
	PlatformFee    float64          `json:"platformFee"`
	ExpectedPayout float64          `json:"expectedPayout"`
	PayoutStatus   string           `json:"payoutStatus"`
	PayoutRef      string           `json:"payoutRef,omitempty"`
	Payments       []models.Payment `json:"payments"`
}

// MatchService owns match lifecycle operations.
type MatchService interface {
	CreateMatch(ctx context.Context, adminID string, in CreateMatchInput) (*models.Match, error)
	UpdateMatch(ctx context.Context, adminID, matchID string, in UpdateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	AdminUpcomingMatches(ctx context.Context, adminID string) ([]models.Match, error)
	CancelMatch(ctx context.Context, adminID, matchID string) error
	// RemovePlayer forcibly removes an unpaid booking and bars the user
	// from rejoining.
	RemovePlayer(ctx context.Context, adminID, matchID, userID string) error
	Roster(ctx context.Context, matchID string) ([]models.Booking, error)
	MatchFinances(ctx context.Context, adminID, matchID string) (*Finances, error)
}
