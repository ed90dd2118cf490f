package match

import (
	"context"
	"testing"
	"time"

	"footyreserve/database/repository/memory"
	"footyreserve/models"
	"footyreserve/services/pricing"
	"footyreserve/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type matchFixture struct {
	svc      *DefaultMatchService
	matches  *memory.MatchRepo
	bookings *memory.BookingRepo
	payments *memory.PaymentRepo
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	f := &matchFixture{
		matches:  memory.NewMatchRepo(),
		bookings: memory.NewBookingRepo(),
		payments: memory.NewPaymentRepo(),
	}
	f.svc = &DefaultMatchService{
		Matches:          f.matches,
		Bookings:         f.bookings,
		Payments:         f.payments,
		Logger:           zap.NewNop(),
		Rates:            pricing.Rates{PlatformRate: 0.05, StripeRate: 0.014, StripeFixed: 0.20},
		MaxActiveMatches: 3,
	}
	return f
}

func validInput(teamID string) CreateMatchInput {
	return CreateMatchInput{
		TeamID:      teamID,
		PitchName:   "Goals Wembley",
		MatchDate:   time.Now().Add(72 * time.Hour),
		MatchTime:   "19:00",
		Spots:       10,
		TotalPayout: 100,
		Password:    "pitchpass",
	}
}

func TestCreateMatch(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("sunday-legends"))
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusActive, m.Status)
	assert.Equal(t, 10.00, m.Pricing.BasePricePerSpot)
	assert.Equal(t, 10.90, m.Pricing.FinalPricePerSpot)
	assert.Empty(t, m.BookedSpots)

	// The join password is stored hashed, never in the clear.
	assert.NotEqual(t, "pitchpass", m.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(m.Password), []byte("pitchpass")))
}

func TestCreateMatchValidation(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	t.Run("past date", func(t *testing.T) {
		in := validInput("t1")
		in.MatchDate = time.Now().Add(-time.Hour)
		_, err := f.svc.CreateMatch(ctx, "admin-1", in)
		assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		in := validInput("t2")
		in.PitchName = ""
		_, err := f.svc.CreateMatch(ctx, "admin-1", in)
		assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
	})

	t.Run("non-positive payout", func(t *testing.T) {
		in := validInput("t3")
		in.TotalPayout = 0
		_, err := f.svc.CreateMatch(ctx, "admin-1", in)
		assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
	})

	t.Run("duplicate team id", func(t *testing.T) {
		_, err := f.svc.CreateMatch(ctx, "admin-1", validInput("taken"))
		require.NoError(t, err)
		_, err = f.svc.CreateMatch(ctx, "admin-2", validInput("taken"))
		assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
	})
}

func TestCreateMatchActiveLimit(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	var first *models.Match
	for _, teamID := range []string{"a", "b", "c"} {
		m, err := f.svc.CreateMatch(ctx, "admin-1", validInput(teamID))
		require.NoError(t, err)
		if first == nil {
			first = m
		}
	}

	_, err := f.svc.CreateMatch(ctx, "admin-1", validInput("d"))
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))

	// A different admin is not affected by the first one's limit.
	_, err = f.svc.CreateMatch(ctx, "admin-2", validInput("e"))
	assert.NoError(t, err)

	// Only ACTIVE matches count; a filled one frees a slot.
	require.NoError(t, f.matches.SetStatusIf(ctx, first.ID,
		[]string{models.MatchStatusActive}, models.MatchStatusFullyBooked))
	_, err = f.svc.CreateMatch(ctx, "admin-1", validInput("f"))
	assert.NoError(t, err)
}

func TestUpdateMatchOwnership(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("owned"))
	require.NoError(t, err)

	newPitch := "Powerleague Mill Hill"
	_, err = f.svc.UpdateMatch(ctx, "intruder", m.ID, UpdateMatchInput{PitchName: &newPitch})
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))

	updated, err := f.svc.UpdateMatch(ctx, "admin-1", m.ID, UpdateMatchInput{PitchName: &newPitch})
	require.NoError(t, err)
	assert.Equal(t, newPitch, updated.PitchName)
}

func TestCancelMatchStatusGuard(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("cancelable"))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelMatch(ctx, "admin-1", m.ID))

	got, err := f.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, got.Status)

	// Once money has settled the match cannot be cancelled anymore.
	m2, err := f.svc.CreateMatch(ctx, "admin-1", validInput("paid-up"))
	require.NoError(t, err)
	require.NoError(t, f.matches.MarkPaidUp(ctx, m2.ID))

	err = f.svc.CancelMatch(ctx, "admin-1", m2.ID)
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
}

func TestRemovePlayer(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("kickable"))
	require.NoError(t, err)

	require.NoError(t, f.bookings.Create(ctx, &models.Booking{
		ID:      "b1",
		MatchID: m.ID,
		UserID:  "u1",
		Status:  models.BookingStatusPending,
	}))

	require.NoError(t, f.svc.RemovePlayer(ctx, "admin-1", m.ID, "u1"))

	_, err = f.bookings.GetByID(ctx, "b1")
	assert.Error(t, err)

	got, err := f.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBlacklisted("u1"))
}

func TestRemovePlayerWithSettledPayment(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("protected"))
	require.NoError(t, err)

	require.NoError(t, f.bookings.Create(ctx, &models.Booking{
		ID:      "b1",
		MatchID: m.ID,
		UserID:  "u1",
		Status:  models.BookingStatusConfirmed,
	}))
	require.NoError(t, f.bookings.ApplySettlement(ctx, "b1", 10.90, []int{1}))

	err = f.svc.RemovePlayer(ctx, "admin-1", m.ID, "u1")
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))

	_, err = f.bookings.GetByID(ctx, "b1")
	assert.NoError(t, err, "paid booking survives the removal attempt")
}

func TestMatchFinances(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMatch(ctx, "admin-1", validInput("books"))
	require.NoError(t, err)

	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID: "p1", MatchID: m.ID, Amount: 21.80, Status: models.PaymentStatusSuccess,
	}))
	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID: "p2", MatchID: m.ID, Amount: 10.90, Status: models.PaymentStatusFailed,
	}))

	fin, err := f.svc.MatchFinances(ctx, "admin-1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, 21.80, fin.TotalCollected, "failed payments do not count")
	assert.Equal(t, 100.00, fin.ExpectedPayout)
	assert.Len(t, fin.Payments, 2)

	_, err = f.svc.MatchFinances(ctx, "not-the-admin", m.ID)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
}

func TestAdminUpcomingMatches(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateMatch(ctx, "admin-1", validInput("future"))
	require.NoError(t, err)

	matches, err := f.svc.AdminUpcomingMatches(ctx, "admin-1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = f.svc.AdminUpcomingMatches(ctx, "admin-2")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
