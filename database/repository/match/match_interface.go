package matchRepo

import (
	"context"
	"errors"
	"time"

	"footyreserve/models"
)

// Sentinel errors returned by conditional updates.
var (
	// ErrNotFound means no match document matched the id.
	ErrNotFound = errors.New("match not found")
	// ErrSpotConflict means at least one requested spot number was already claimed.
	ErrSpotConflict = errors.New("one or more spots already booked")
	// ErrStatusConflict means a guarded status transition found the match in a different state.
	ErrStatusConflict = errors.New("match status transition rejected")
	// ErrPayoutLocked means the payout in-progress flag was already set.
	ErrPayoutLocked = errors.New("payout already in progress")
)

// MatchRepository defines data access for matches. The spot and status
// operations are the system's concurrency-control primitives: each is a
// single conditional update against the store, never read-then-write.
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	GetByTeamID(ctx context.Context, teamID string) (*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	CountActiveByAdmin(ctx context.Context, adminID string) (int, error)
	ListUpcomingByAdmin(ctx context.Context, adminID string, after time.Time) ([]models.Match, error)

	// ReserveSpots atomically adds the given spot numbers to the
	// booked-spot set, failing with ErrSpotConflict if any of them is
	// already present. Exactly one of two concurrent overlapping
	// reservations can succeed.
	ReserveSpots(ctx context.Context, matchID string, spots []int) error
	// ReleaseSpots unconditionally removes the given spot numbers.
	ReleaseSpots(ctx context.Context, matchID string, spots []int) error
	// ConfirmSpotsPaid increments the confirmed-paid counter and
	// returns the updated match.
	ConfirmSpotsPaid(ctx context.Context, matchID string, count int) (*models.Match, error)
	// SetStatusIf transitions status to "to" only while the current
	// status is one of "from", failing with ErrStatusConflict otherwise.
	SetStatusIf(ctx context.Context, matchID string, from []string, to string) error
	// MarkPaidUp is the guarded PAID_UP transition; re-entry on an
	// already promoted match fails with ErrStatusConflict.
	MarkPaidUp(ctx context.Context, matchID string) error

	// AcquirePayoutLock sets the payout in-progress flag if it is not
	// already set and no payout reference was recorded, appending an
	// INITIATED history entry. Fails with ErrPayoutLocked otherwise.
	AcquirePayoutLock(ctx context.Context, matchID string) error
	// ReleasePayoutLock clears the flag and appends a history entry.
	ReleasePayoutLock(ctx context.Context, matchID string, record models.PayoutRecord) error
	// CompletePayout records a successful transfer: status COMPLETED,
	// payout reference/amount/date, flag cleared, SUCCESS history entry.
	CompletePayout(ctx context.Context, matchID, payoutRef string, amount float64) error

	AddToBlacklist(ctx context.Context, matchID, userID string) error
	SetStripeAccount(ctx context.Context, matchID, accountID string) error
}
