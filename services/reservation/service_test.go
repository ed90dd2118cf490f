package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"footyreserve/database/repository/memory"
	"footyreserve/gateway"
	"footyreserve/models"
	"footyreserve/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type createdIntent struct {
	ID       string
	Amount   float64
	Metadata map[string]string
}

// scriptedGateway fabricates intents and lets tests script the status
// RetrieveIntent reports for each of them.
type scriptedGateway struct {
	mu        sync.Mutex
	seq       int
	statuses  map[string]string
	created   []createdIntent
	canceled  []string
	createErr error
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{statuses: make(map[string]string)}
}

func (g *scriptedGateway) CreateIntent(ctx context.Context, amount float64, currency, description string, metadata map[string]string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	id := fmt.Sprintf("pi_%d", g.seq)
	g.statuses[id] = gateway.IntentStatusRequiresPaymentMethod
	g.created = append(g.created, createdIntent{ID: id, Amount: amount, Metadata: metadata})
	return &gateway.Intent{ID: id, ClientSecret: "cs_" + id, Status: g.statuses[id]}, nil
}

func (g *scriptedGateway) RetrieveIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[intentID]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return &gateway.Intent{ID: intentID, Status: status}, nil
}

func (g *scriptedGateway) CancelIntent(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, intentID)
	g.statuses[intentID] = "canceled"
	return nil
}

func (g *scriptedGateway) setStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[intentID] = status
}

func (g *scriptedGateway) CreateTransfer(ctx context.Context, amount float64, currency, destination, idempotencyKey string, metadata map[string]string) (string, error) {
	return "", errors.New("not implemented")
}

func (g *scriptedGateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGateway) CreateConnectedAccount(ctx context.Context, email string, metadata map[string]string) (string, error) {
	return "", errors.New("not implemented")
}

func (g *scriptedGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	return "", errors.New("not implemented")
}

type resFixture struct {
	svc      *DefaultReservationService
	matches  *memory.MatchRepo
	bookings *memory.BookingRepo
	payments *memory.PaymentRepo
	gateway  *scriptedGateway
}

func newResFixture(t *testing.T) *resFixture {
	t.Helper()
	f := &resFixture{
		matches:  memory.NewMatchRepo(),
		bookings: memory.NewBookingRepo(),
		payments: memory.NewPaymentRepo(),
		gateway:  newScriptedGateway(),
	}
	f.bookings.Matches = f.matches
	f.svc = &DefaultReservationService{
		Matches:     f.matches,
		Bookings:    f.bookings,
		Payments:    f.payments,
		Gateway:     f.gateway,
		Logger:      zap.NewNop(),
		StaleWindow: 10 * time.Minute,
		Currency:    "gbp",
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.matches.Create(context.Background(), &models.Match{
		ID:        "m1",
		TeamID:    "team-1",
		AdminID:   "admin-1",
		PitchName: "Powerleague Shoreditch",
		MatchDate: time.Now().Add(48 * time.Hour),
		Spots:     10,
		Status:    models.MatchStatusActive,
		Password:  string(hash),
		Pricing: models.Pricing{
			BasePricePerSpot:  10.00,
			FinalPricePerSpot: 12.50,
		},
	}))
	return f
}

func (f *resFixture) join(t *testing.T, userID string) *models.Booking {
	t.Helper()
	b, err := f.svc.Join(context.Background(), userID, "m1", JoinInput{
		TeamID:   "team-1",
		Password: "secret",
	})
	require.NoError(t, err)
	return b
}

func TestJoinCreatesPendingBooking(t *testing.T) {
	f := newResFixture(t)
	b := f.join(t, "u1")

	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Empty(t, b.SpotBooked, "spots are only claimed at payment time")
	assert.Equal(t, "m1", b.MatchID)
}

func TestJoinPreconditions(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Join(ctx, "u1", "m1", JoinInput{TeamID: "team-1", Password: "wrong"})
		assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
	})

	t.Run("wrong team id", func(t *testing.T) {
		_, err := f.svc.Join(ctx, "u1", "m1", JoinInput{TeamID: "other-team", Password: "secret"})
		assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
	})

	t.Run("unknown match", func(t *testing.T) {
		_, err := f.svc.Join(ctx, "u1", "nope", JoinInput{TeamID: "team-1", Password: "secret"})
		assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
	})

	t.Run("double join", func(t *testing.T) {
		f.join(t, "u2")
		_, err := f.svc.Join(ctx, "u2", "m1", JoinInput{TeamID: "team-1", Password: "secret"})
		assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
	})

	t.Run("blacklisted", func(t *testing.T) {
		require.NoError(t, f.matches.AddToBlacklist(ctx, "m1", "u3"))
		_, err := f.svc.Join(ctx, "u3", "m1", JoinInput{TeamID: "team-1", Password: "secret"})
		assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
	})

	t.Run("inactive match", func(t *testing.T) {
		require.NoError(t, f.matches.SetStatusIf(ctx, "m1",
			[]string{models.MatchStatusActive}, models.MatchStatusCancelled))
		_, err := f.svc.Join(ctx, "u4", "m1", JoinInput{TeamID: "team-1", Password: "secret"})
		assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
	})
}

func TestInitiatePaymentReservesSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	res, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 25.00, res.Amount)
	assert.NotEmpty(t, res.ClientSecret)

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, m.BookedSpots)

	p, err := f.payments.GetByID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.NotEmpty(t, p.StripePaymentIntentID)

	require.Len(t, f.gateway.created, 1)
	meta := f.gateway.created[0].Metadata
	assert.Equal(t, res.PaymentID, meta["paymentId"])
	assert.Equal(t, "1,2", meta["spotBooked"])
	assert.Equal(t, "m1", meta["matchId"])
}

func TestInitiatePaymentRejectsInvalidSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	_, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{MatchID: "m1", SpotBooked: []int{0}})
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))

	_, err = f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{MatchID: "m1", SpotBooked: []int{11}})
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
}

func TestInitiatePaymentRejectsDuplicateSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	// A repeated spot number would charge for two spots while only one
	// distinct spot is held.
	_, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{MatchID: "m1", SpotBooked: []int{1, 1}})
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots, "nothing may be reserved for a rejected request")
}

func TestInitiatePaymentGatewayFailureFreesSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	f.gateway.createErr = errors.New("stripe unreachable")
	_, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{1, 2},
	})
	assert.Equal(t, utils.CodeGateway, utils.CodeOf(err))

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots, "the failed initiation must not hold spots")

	payments, err := f.payments.ListByMatch(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusCanceled, payments[0].Status)

	// The spots are free again for the retry.
	f.gateway.createErr = nil
	_, err = f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{1, 2},
	})
	assert.NoError(t, err)
}

func TestInitiatePaymentWithoutJoining(t *testing.T) {
	f := newResFixture(t)
	_, err := f.svc.InitiatePayment(context.Background(), "stranger", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{1},
	})
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}

func TestConcurrentDisjointReservationsBothSucceed(t *testing.T) {
	f := newResFixture(t)
	f.join(t, "u1")
	f.join(t, "u2")

	requests := map[string][]int{
		"u1": {1, 2},
		"u2": {3, 4},
	}
	errs := make(chan error, len(requests))
	var wg sync.WaitGroup
	for user, spots := range requests {
		wg.Add(1)
		go func(user string, spots []int) {
			defer wg.Done()
			_, err := f.svc.InitiatePayment(context.Background(), user, PaymentInitInput{
				MatchID:    "m1",
				SpotBooked: spots,
			})
			errs <- err
		}(user, spots)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	m, err := f.matches.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, m.BookedSpots)
}

func TestConcurrentOverlappingReservationsOneWins(t *testing.T) {
	f := newResFixture(t)
	f.join(t, "u1")
	f.join(t, "u2")

	requests := map[string][]int{
		"u1": {1, 2},
		"u2": {2, 3},
	}
	errs := make(chan error, len(requests))
	var wg sync.WaitGroup
	for user, spots := range requests {
		wg.Add(1)
		go func(user string, spots []int) {
			defer wg.Done()
			_, err := f.svc.InitiatePayment(context.Background(), user, PaymentInitInput{
				MatchID:    "m1",
				SpotBooked: spots,
			})
			errs <- err
		}(user, spots)
	}
	wg.Wait()
	close(errs)

	succeeded, conflicted := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if utils.CodeOf(err) == utils.CodeConflict {
			conflicted++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	m, err := f.matches.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Len(t, m.BookedSpots, 2, "only the winner's spots are held")
}

func TestCancelPaymentReleasesSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	res, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{5, 6},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelPayment(ctx, "u1", res.PaymentID))

	p, err := f.payments.GetByID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, p.Status)

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots)
	assert.Len(t, f.gateway.canceled, 1)
}

func TestCancelPaymentWithoutIntent(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	require.NoError(t, f.matches.ReserveSpots(ctx, "m1", []int{8}))
	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID:         "p_nointent",
		BookingID:  "b_nointent",
		MatchID:    "m1",
		UserID:     "u1",
		Amount:     12.50,
		Status:     models.PaymentStatusPending,
		SpotBooked: []int{8},
		CreatedAt:  time.Now(),
	}))

	require.NoError(t, f.svc.CancelPayment(ctx, "u1", "p_nointent"))

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots)
	assert.Empty(t, f.gateway.canceled, "no gateway session to cancel")
}

func TestCancelPaymentOwnershipAndStatus(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	res, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{1},
	})
	require.NoError(t, err)

	err = f.svc.CancelPayment(ctx, "u2", res.PaymentID)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))

	require.NoError(t, f.payments.MarkSuccess(ctx, res.PaymentID, "ch_1"))
	err = f.svc.CancelPayment(ctx, "u1", res.PaymentID)
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
}

// seedStalePayment plants a PENDING payment older than the staleness
// window, with its spots still held on the match.
func (f *resFixture) seedStalePayment(t *testing.T, id string, spots []int, intentStatus string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.matches.ReserveSpots(ctx, "m1", spots))

	intentID := "pi_stale_" + id
	f.gateway.setStatus(intentID, intentStatus)
	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID:                    id,
		BookingID:             "b_" + id,
		MatchID:               "m1",
		UserID:                "u_" + id,
		Amount:                12.50 * float64(len(spots)),
		Status:                models.PaymentStatusPending,
		SpotBooked:            spots,
		StripePaymentIntentID: intentID,
		CreatedAt:             time.Now().Add(-20 * time.Minute),
	}))
}

func TestSweepStaleReleasesAbandonedSpots(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	f.seedStalePayment(t, "stale1", []int{7, 8}, gateway.IntentStatusRequiresPaymentMethod)

	swept, err := f.svc.SweepStale(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	p, err := f.payments.GetByID(ctx, "stale1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, p.Status)

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots)
	assert.Contains(t, f.gateway.canceled, "pi_stale_stale1")
}

func TestSweepCancelsPaymentWithoutIntent(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	// A crash between reserving spots and opening the gateway session
	// leaves a PENDING payment with no intent id; the sweep must still
	// free its spots, without a gateway round trip.
	require.NoError(t, f.matches.ReserveSpots(ctx, "m1", []int{4, 5}))
	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		ID:         "orphan",
		BookingID:  "b_orphan",
		MatchID:    "m1",
		UserID:     "u_orphan",
		Amount:     25.00,
		Status:     models.PaymentStatusPending,
		SpotBooked: []int{4, 5},
		CreatedAt:  time.Now().Add(-20 * time.Minute),
	}))

	swept, err := f.svc.SweepStale(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	p, err := f.payments.GetByID(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, p.Status)

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots)
	assert.Empty(t, f.gateway.canceled)
}

func TestSweepCancelsMidAuthorizationIntent(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	// A payer stuck in 3DS could still complete the checkout after the
	// spots are released; the intent must be canceled upstream first.
	f.seedStalePayment(t, "midauth", []int{2}, gateway.IntentStatusRequiresAction)

	swept, err := f.svc.SweepStale(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Contains(t, f.gateway.canceled, "pi_stale_midauth")

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, m.BookedSpots)
}

func TestSweepLeavesProcessingPaymentsAlone(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	f.seedStalePayment(t, "inflight", []int{3}, gateway.IntentStatusProcessing)

	swept, err := f.svc.SweepStale(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	p, err := f.payments.GetByID(ctx, "inflight")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status, "the webhook settles it")

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3}, m.BookedSpots)
}

func TestInitiatePaymentSweepsBeforeReserving(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()
	f.join(t, "u1")

	// Spots 9 and 10 are starved by an abandoned checkout; a fresh
	// request for them must win after the lazy sweep.
	f.seedStalePayment(t, "stale2", []int{9, 10}, gateway.IntentStatusRequiresPaymentMethod)

	res, err := f.svc.InitiatePayment(ctx, "u1", PaymentInitInput{
		MatchID:    "m1",
		SpotBooked: []int{9, 10},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{9, 10}, res.SpotBooked)
}

func TestSweepAllCoversEveryStaleMatch(t *testing.T) {
	f := newResFixture(t)
	ctx := context.Background()

	f.seedStalePayment(t, "stale3", []int{1}, gateway.IntentStatusRequiresPaymentMethod)

	require.NoError(t, f.svc.SweepAll(ctx))

	p, err := f.payments.GetByID(ctx, "stale3")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, p.Status)
}
