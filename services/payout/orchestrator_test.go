package payout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"footyreserve/database/repository/memory"
	"footyreserve/gateway"
	"footyreserve/models"
	"footyreserve/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type transferCall struct {
	Amount         float64
	Destination    string
	IdempotencyKey string
}

type fakeGateway struct {
	mu          sync.Mutex
	transfers   []transferCall
	transferErr error
}

func (g *fakeGateway) CreateTransfer(ctx context.Context, amount float64, currency, destination, idempotencyKey string, metadata map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return "", g.transferErr
	}
	g.transfers = append(g.transfers, transferCall{
		Amount:         amount,
		Destination:    destination,
		IdempotencyKey: idempotencyKey,
	})
	return "tr_fake_1", nil
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount float64, currency, description string, metadata map[string]string) (*gateway.Intent, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) CancelIntent(ctx context.Context, intentID string) error { return nil }

func (g *fakeGateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) CreateConnectedAccount(ctx context.Context, email string, metadata map[string]string) (string, error) {
	return "acct_fake_1", nil
}

func (g *fakeGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.stripe.test/onboard/" + accountID, nil
}

func (g *fakeGateway) transferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

type payoutFixture struct {
	orch     *Orchestrator
	matches  *memory.MatchRepo
	payments *memory.PaymentRepo
	users    *memory.UserRepo
	gateway  *fakeGateway
}

// newPayoutFixture seeds an 8-spot PAID_UP match: £12.50 a spot fully
// collected, £10 a spot owed to the organizer.
func newPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()
	f := &payoutFixture{
		matches:  memory.NewMatchRepo(),
		payments: memory.NewPaymentRepo(),
		users:    memory.NewUserRepo(),
		gateway:  &fakeGateway{},
	}
	f.orch = &Orchestrator{
		Matches:  f.matches,
		Payments: f.payments,
		Users:    f.users,
		Gateway:  f.gateway,
		Logger:   zap.NewNop(),
		Currency: "gbp",
	}

	ctx := context.Background()
	require.NoError(t, f.matches.Create(ctx, &models.Match{
		ID:          "m1",
		TeamID:      "team-1",
		AdminID:     "admin-1",
		Spots:       8,
		SpotsBooked: 8,
		Status:      models.MatchStatusPaidUp,
		Pricing: models.Pricing{
			BasePricePerSpot:  10.00,
			FinalPricePerSpot: 12.50,
		},
		AccountDetails: models.AccountDetails{StripeAccountID: "acct_team1"},
	}))
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		require.NoError(t, f.payments.Create(ctx, &models.Payment{
			ID:      id,
			MatchID: "m1",
			UserID:  "u1",
			Amount:  25.00,
			Status:  models.PaymentStatusSuccess,
			SpotBooked: []int{
				i*2 + 1, i*2 + 2,
			},
		}))
	}
	require.NoError(t, f.users.Create(ctx, &models.User{
		ID:    "admin-1",
		Email: "admin@example.com",
	}))
	return f
}

func TestPayoutSuccess(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	ref, amount, err := f.orch.Initiate(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "tr_fake_1", ref)
	assert.Equal(t, 80.00, amount)

	require.Equal(t, 1, f.gateway.transferCount())
	call := f.gateway.transfers[0]
	assert.Equal(t, 80.00, call.Amount)
	assert.Equal(t, "acct_team1", call.Destination)
	assert.Equal(t, "payout_m1", call.IdempotencyKey)

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Equal(t, "tr_fake_1", m.PayoutRef)
	assert.Equal(t, 80.00, m.PayoutAmount)
	assert.False(t, m.PayoutInitiated)
}

func TestPayoutConcurrentInitiateSingleTransfer(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.orch.Initiate(ctx, "m1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one caller wins the payout lock")
	assert.Equal(t, 1, f.gateway.transferCount())
}

func TestPayoutRepeatAfterCompletionRejected(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	_, _, err := f.orch.Initiate(ctx, "m1")
	require.NoError(t, err)

	_, _, err = f.orch.Initiate(ctx, "m1")
	require.Error(t, err)
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
	assert.Equal(t, 1, f.gateway.transferCount())
}

func TestPayoutDiscrepancyReleasesLock(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	// Raise the expected total to £100.02 against £100.00 collected:
	// outside the £0.01 tolerance.
	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	m.Spots = 2
	m.Pricing.FinalPricePerSpot = 50.01
	require.NoError(t, f.matches.Update(ctx, m))

	_, _, err = f.orch.Initiate(ctx, "m1")
	require.Error(t, err)
	assert.Equal(t, utils.CodeDiscrepancy, utils.CodeOf(err))
	assert.Equal(t, 0, f.gateway.transferCount())

	m, err = f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, m.PayoutInitiated, "lock released for manual intervention")
	require.NotEmpty(t, m.PayoutHistory)
	last := m.PayoutHistory[len(m.PayoutHistory)-1]
	assert.Equal(t, models.PayoutDiscrepancy, last.Status)
	assert.Contains(t, last.Message, "£100.02")
	assert.Contains(t, last.Message, "£100.00")
}

func TestPayoutWithinToleranceProceeds(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	// £100.005 expected vs £100.00 collected stays inside the
	// half-penny rounding drift the reconciliation tolerates.
	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	m.Spots = 2
	m.Pricing.FinalPricePerSpot = 50.0025
	require.NoError(t, f.matches.Update(ctx, m))

	_, _, err = f.orch.Initiate(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.transferCount())
}

func TestPayoutGatewayFailureIsRetryable(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	f.gateway.transferErr = errors.New("stripe: connection reset")
	_, _, err := f.orch.Initiate(ctx, "m1")
	require.Error(t, err)
	assert.Equal(t, utils.CodeGateway, utils.CodeOf(err))

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, m.PayoutInitiated)
	require.NotEmpty(t, m.PayoutHistory)
	assert.Equal(t, models.PayoutFailed, m.PayoutHistory[len(m.PayoutHistory)-1].Status)

	// The gateway recovers; the retry goes through.
	f.gateway.transferErr = nil
	ref, _, err := f.orch.Initiate(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "tr_fake_1", ref)
}

func TestPayoutWithoutConnectedAccount(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	m.AccountDetails.StripeAccountID = ""
	require.NoError(t, f.matches.Update(ctx, m))

	_, _, err = f.orch.Initiate(ctx, "m1")
	require.Error(t, err)
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
}

func TestAdminInitiateChecksOwnership(t *testing.T) {
	f := newPayoutFixture(t)
	_, _, err := f.orch.AdminInitiate(context.Background(), "someone-else", "m1")
	require.Error(t, err)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
	assert.Equal(t, 0, f.gateway.transferCount())
}

func TestSetupAccountStoresConnectedAccount(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()

	accountID, url, err := f.orch.SetupAccount(ctx, "admin-1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "acct_fake_1", accountID)
	assert.Contains(t, url, "acct_fake_1")

	m, err := f.matches.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "acct_fake_1", m.AccountDetails.StripeAccountID)

	admin, err := f.users.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, admin.AccountDetails)
	assert.Equal(t, "acct_fake_1", admin.AccountDetails[len(admin.AccountDetails)-1].StripeAccountID)
}
