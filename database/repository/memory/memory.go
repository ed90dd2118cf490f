// Package memory provides map-backed repository implementations with
// the same conditional-update semantics as the Mongo repositories.
// They exist for service tests; nothing in the server wires them.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookingRepo "footyreserve/database/repository/booking"
	matchRepo "footyreserve/database/repository/match"
	paymentRepo "footyreserve/database/repository/payment"
	userRepo "footyreserve/database/repository/user"
	"footyreserve/models"
)

// SnapshotTxRunner mimics a Mongo transaction over the map
// repositories: the callback runs against the live state, and every
// repository is restored to its pre-call state when the callback
// returns an error.
type SnapshotTxRunner struct {
	Matches  *MatchRepo
	Bookings *BookingRepo
	Payments *PaymentRepo
}

func (r SnapshotTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	matches := r.Matches.snapshot()
	bookings := r.Bookings.snapshot()
	payments := r.Payments.snapshot()
	if err := fn(ctx); err != nil {
		r.Matches.restore(matches)
		r.Bookings.restore(bookings)
		r.Payments.restore(payments)
		return err
	}
	return nil
}

// MatchRepo is an in-memory matchRepo.MatchRepository.
type MatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

func NewMatchRepo() *MatchRepo {
	return &MatchRepo{matches: make(map[string]*models.Match)}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.BookedSpots = append([]int(nil), m.BookedSpots...)
	c.Blacklist = append([]string(nil), m.Blacklist...)
	c.PayoutHistory = append([]models.PayoutRecord(nil), m.PayoutHistory...)
	return &c
}

func (r *MatchRepo) snapshot() map[string]*models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*models.Match, len(r.matches))
	for id, m := range r.matches {
		out[id] = cloneMatch(m)
	}
	return out
}

func (r *MatchRepo) restore(snap map[string]*models.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = snap
}

func (r *MatchRepo) Create(ctx context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *MatchRepo) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, matchRepo.ErrNotFound
	}
	return cloneMatch(m), nil
}

func (r *MatchRepo) GetByTeamID(ctx context.Context, teamID string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.TeamID == teamID {
			return cloneMatch(m), nil
		}
	}
	return nil, matchRepo.ErrNotFound
}

func (r *MatchRepo) Update(ctx context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[match.ID]; !ok {
		return matchRepo.ErrNotFound
	}
	r.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *MatchRepo) CountActiveByAdmin(ctx context.Context, adminID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.matches {
		if m.AdminID == adminID && m.Status == models.MatchStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *MatchRepo) ListUpcomingByAdmin(ctx context.Context, adminID string, after time.Time) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Match
	for _, m := range r.matches {
		if m.AdminID == adminID && m.MatchDate.After(after) {
			out = append(out, *cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchDate.Before(out[j].MatchDate) })
	return out, nil
}

func (r *MatchRepo) ReserveSpots(ctx context.Context, matchID string, spots []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	taken := make(map[int]bool, len(m.BookedSpots))
	for _, s := range m.BookedSpots {
		taken[s] = true
	}
	for _, s := range spots {
		if taken[s] {
			return matchRepo.ErrSpotConflict
		}
	}
	// Set semantics: a value repeated within the request is stored once.
	for _, s := range spots {
		if !taken[s] {
			taken[s] = true
			m.BookedSpots = append(m.BookedSpots, s)
		}
	}
	return nil
}

func (r *MatchRepo) ReleaseSpots(ctx context.Context, matchID string, spots []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	drop := make(map[int]bool, len(spots))
	for _, s := range spots {
		drop[s] = true
	}
	kept := m.BookedSpots[:0]
	for _, s := range m.BookedSpots {
		if !drop[s] {
			kept = append(kept, s)
		}
	}
	m.BookedSpots = kept
	return nil
}

func (r *MatchRepo) ConfirmSpotsPaid(ctx context.Context, matchID string, count int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, matchRepo.ErrNotFound
	}
	m.SpotsBooked += count
	return cloneMatch(m), nil
}

func (r *MatchRepo) SetStatusIf(ctx context.Context, matchID string, from []string, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	for _, f := range from {
		if m.Status == f {
			m.Status = to
			return nil
		}
	}
	return matchRepo.ErrStatusConflict
}

func (r *MatchRepo) MarkPaidUp(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	if m.Status == models.MatchStatusPaidUp || m.Status == models.MatchStatusCompleted {
		return matchRepo.ErrStatusConflict
	}
	m.Status = models.MatchStatusPaidUp
	return nil
}

func (r *MatchRepo) AcquirePayoutLock(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	if m.PayoutInitiated || m.PayoutRef != "" {
		return matchRepo.ErrPayoutLocked
	}
	m.PayoutInitiated = true
	m.PayoutHistory = append(m.PayoutHistory, models.PayoutRecord{
		Status: models.PayoutInitiated,
		Date:   time.Now(),
	})
	return nil
}

func (r *MatchRepo) ReleasePayoutLock(ctx context.Context, matchID string, record models.PayoutRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	m.PayoutInitiated = false
	m.PayoutHistory = append(m.PayoutHistory, record)
	return nil
}

func (r *MatchRepo) CompletePayout(ctx context.Context, matchID, payoutRef string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	now := time.Now()
	m.Status = models.MatchStatusCompleted
	m.PayoutInitiated = false
	m.PayoutRef = payoutRef
	m.PayoutAmount = amount
	m.PayoutDate = &now
	m.PayoutHistory = append(m.PayoutHistory, models.PayoutRecord{
		Status:    models.PayoutSuccess,
		PayoutRef: payoutRef,
		Date:      now,
	})
	return nil
}

func (r *MatchRepo) AddToBlacklist(ctx context.Context, matchID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	for _, id := range m.Blacklist {
		if id == userID {
			return nil
		}
	}
	m.Blacklist = append(m.Blacklist, userID)
	return nil
}

func (r *MatchRepo) SetStripeAccount(ctx context.Context, matchID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return matchRepo.ErrNotFound
	}
	m.AccountDetails.StripeAccountID = accountID
	return nil
}

// BookingRepo is an in-memory bookingRepo.BookingRepository. Matches
// is optional and only consulted by ListUpcomingMatchesByUser.
type BookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	Matches  *MatchRepo
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{bookings: make(map[string]*models.Booking)}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	c.SpotBooked = append([]int(nil), b.SpotBooked...)
	return &c
}

func (r *BookingRepo) snapshot() map[string]*models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*models.Booking, len(r.bookings))
	for id, b := range r.bookings {
		out[id] = cloneBooking(b)
	}
	return out
}

func (r *BookingRepo) restore(snap map[string]*models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = snap
}

func (r *BookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.MatchID == booking.MatchID && b.UserID == booking.UserID {
			return errors.New("duplicate booking for match and user")
		}
	}
	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepo) GetByMatchAndUser(ctx context.Context, matchID, userID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.MatchID == matchID && b.UserID == userID {
			return cloneBooking(b), nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *BookingRepo) ListByMatch(ctx context.Context, matchID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.MatchID == matchID {
			out = append(out, *cloneBooking(b))
		}
	}
	return out, nil
}

func (r *BookingRepo) ListUpcomingMatchesByUser(ctx context.Context, userID string) ([]models.Match, error) {
	if r.Matches == nil {
		return nil, nil
	}
	r.mu.Lock()
	var matchIDs []string
	for _, b := range r.bookings {
		if b.UserID == userID {
			matchIDs = append(matchIDs, b.MatchID)
		}
	}
	r.mu.Unlock()

	now := time.Now()
	var out []models.Match
	for _, id := range matchIDs {
		m, err := r.Matches.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if m.MatchDate.After(now) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchDate.Before(out[j].MatchDate) })
	return out, nil
}

func (r *BookingRepo) ApplySettlement(ctx context.Context, bookingID string, amount float64, spots []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.AmountPaid += amount
	for _, s := range spots {
		if !b.HasSpot(s) {
			b.SpotBooked = append(b.SpotBooked, s)
		}
	}
	b.Status = models.BookingStatusConfirmed
	return nil
}

func (r *BookingRepo) DeleteUnpaid(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if b.AmountPaid > 0 {
		return bookingRepo.ErrAlreadyPaid
	}
	delete(r.bookings, id)
	return nil
}

// PaymentRepo is an in-memory paymentRepo.PaymentRepository.
type PaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{payments: make(map[string]*models.Payment)}
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	c.SpotBooked = append([]int(nil), p.SpotBooked...)
	return &c
}

func (r *PaymentRepo) snapshot() map[string]*models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*models.Payment, len(r.payments))
	for id, p := range r.payments {
		out[id] = clonePayment(p)
	}
	return out
}

func (r *PaymentRepo) restore(snap map[string]*models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = snap
}

func (r *PaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := clonePayment(payment)
	// Mirror the Mongo repository, which stamps CreatedAt on insert;
	// a caller-provided timestamp (used by staleness tests) is kept.
	if c.CreatedAt.IsZero() {
		now := time.Now()
		c.CreatedAt = now
		c.UpdatedAt = now
	}
	r.payments[payment.ID] = c
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, paymentRepo.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *PaymentRepo) ListByMatch(ctx context.Context, matchID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.MatchID == matchID {
			out = append(out, *clonePayment(p))
		}
	}
	return out, nil
}

func (r *PaymentRepo) SetStripeIntentID(ctx context.Context, id, intentID string) error {
	return r.mutate(id, func(p *models.Payment) {
		p.StripePaymentIntentID = intentID
	})
}

func (r *PaymentRepo) MarkSuccess(ctx context.Context, id, chargeID string) error {
	return r.mutate(id, func(p *models.Payment) {
		p.Status = models.PaymentStatusSuccess
		p.StripeChargeID = chargeID
	})
}

func (r *PaymentRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.mutate(id, func(p *models.Payment) {
		p.Status = models.PaymentStatusFailed
		p.FailureReason = reason
	})
}

func (r *PaymentRepo) MarkCanceled(ctx context.Context, id, reason string) error {
	return r.mutate(id, func(p *models.Payment) {
		p.Status = models.PaymentStatusCanceled
		p.FailureReason = reason
	})
}

func (r *PaymentRepo) mutate(id string, fn func(*models.Payment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return paymentRepo.ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now()
	return nil
}

func (r *PaymentRepo) FindStalePending(ctx context.Context, matchID string, cutoff time.Time) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.MatchID == matchID && p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *clonePayment(p))
		}
	}
	return out, nil
}

func (r *PaymentRepo) DistinctStaleMatches(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) && !seen[p.MatchID] {
			seen[p.MatchID] = true
			out = append(out, p.MatchID)
		}
	}
	return out, nil
}

func (r *PaymentRepo) SumSuccessful(ctx context.Context, matchID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, p := range r.payments {
		if p.MatchID == matchID && p.Status == models.PaymentStatusSuccess {
			total += p.Amount
		}
	}
	return total, nil
}

// UserRepo is an in-memory userRepo.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*models.User)}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, userRepo.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, userRepo.ErrNotFound
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return userRepo.ErrNotFound
	}
	c := *user
	r.users[user.ID] = &c
	return nil
}
