package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	bookingRepo "footyreserve/database/repository/booking"
	matchRepo "footyreserve/database/repository/match"
	paymentRepo "footyreserve/database/repository/payment"
	"footyreserve/gateway"
	"footyreserve/models"
	"footyreserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultReservationService implements ReservationService.
type DefaultReservationService struct {
	Matches  matchRepo.MatchRepository
	Bookings bookingRepo.BookingRepository
	Payments paymentRepo.PaymentRepository
	Gateway  gateway.PaymentGateway
	Logger   *zap.Logger
	// StaleWindow is how long a PENDING payment may hold its spots.
	StaleWindow time.Duration
	Currency    string
}

// Join runs the precondition chain and creates a PENDING booking with
// an empty spot set. Spots are claimed later, at payment initiation.
func (s *DefaultReservationService) Join(ctx context.Context, userID, matchID string, in JoinInput) (*models.Booking, error) {
	if matchID == "" || in.Password == "" {
		return nil, utils.ValidationErr("match ID and password are required")
	}

	m, err := s.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("match not found")
		}
		return nil, utils.InternalErr("failed to fetch match", err)
	}

	if m.IsBlacklisted(userID) {
		return nil, utils.ForbiddenErr("you cannot join this match")
	}
	if m.Status != models.MatchStatusActive {
		return nil, utils.ValidationErr("match not active")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(in.Password)); err != nil {
		return nil, utils.ForbiddenErr("invalid password")
	}
	if m.TeamID != in.TeamID {
		return nil, utils.ValidationErr("invalid team ID for this match")
	}

	if _, err := s.Bookings.GetByMatchAndUser(ctx, matchID, userID); err == nil {
		return nil, utils.ConflictErr("you have already joined this match")
	} else if !errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, utils.InternalErr("failed to check existing booking", err)
	}

	if m.AvailableSpots() <= 0 {
		return nil, utils.ValidationErr("no spots available")
	}

	booking := &models.Booking{
		ID:         uuid.New().String(),
		MatchID:    matchID,
		UserID:     userID,
		Status:     models.BookingStatusPending,
		SpotBooked: []int{},
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, utils.InternalErr("failed to create booking", err)
	}

	s.Logger.Info("user joined match",
		zap.String("matchId", matchID),
		zap.String("userId", userID))
	return booking, nil
}

// InitiatePayment validates a spot request, performs the atomic
// reservation and opens a gateway payment session. If the session
// fails to open, the reservation is compensated inline; whatever the
// compensation itself cannot undo is left for the stale sweep.
func (s *DefaultReservationService) InitiatePayment(ctx context.Context, userID string, in PaymentInitInput) (*PaymentInitResult, error) {
	if in.MatchID == "" || len(in.SpotBooked) == 0 {
		return nil, utils.ValidationErr("matchId and spotBooked are required")
	}
	seen := make(map[int]bool, len(in.SpotBooked))
	for _, spot := range in.SpotBooked {
		if seen[spot] {
			return nil, utils.ValidationErr(fmt.Sprintf("spot %d requested more than once", spot))
		}
		seen[spot] = true
	}

	// Abandoned checkout sessions must not starve spots forever.
	if _, err := s.SweepStale(ctx, in.MatchID); err != nil {
		// The sweep is best effort; the reservation proceeds regardless.
		s.Logger.Warn("stale reservation sweep failed",
			zap.String("matchId", in.MatchID), zap.Error(err))
	}

	booking, err := s.Bookings.GetByMatchAndUser(ctx, in.MatchID, userID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("booking not found; join the match first")
		}
		return nil, utils.InternalErr("failed to fetch booking", err)
	}

	for _, spot := range in.SpotBooked {
		if booking.HasSpot(spot) {
			return nil, utils.ConflictErr("already booked this spot")
		}
	}

	m, err := s.Matches.GetByID(ctx, in.MatchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("match not found")
		}
		return nil, utils.InternalErr("failed to fetch match", err)
	}

	for _, spot := range in.SpotBooked {
		if spot < 1 || spot > m.Spots {
			return nil, utils.ValidationErr(fmt.Sprintf("spot %d is out of range", spot))
		}
	}
	if len(in.SpotBooked) > m.AvailableSpots() {
		return nil, utils.ValidationErr(fmt.Sprintf("only %d spots available", m.AvailableSpots()))
	}

	if err := s.Matches.ReserveSpots(ctx, in.MatchID, in.SpotBooked); err != nil {
		if errors.Is(err, matchRepo.ErrSpotConflict) {
			return nil, utils.ConflictErr("spots no longer available")
		}
		return nil, utils.InternalErr("failed to reserve spots", err)
	}

	amount := float64(len(in.SpotBooked)) * m.Pricing.FinalPricePerSpot
	payment := &models.Payment{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		MatchID:        m.ID,
		UserID:         userID,
		Amount:         amount,
		Status:         models.PaymentStatusPending,
		TransactionRef: fmt.Sprintf("TXN_%s_%s_%d", m.ID, userID, time.Now().UnixMilli()),
		SpotBooked:     in.SpotBooked,
	}
	if err := s.Payments.Create(ctx, payment); err != nil {
		return nil, utils.InternalErr("failed to create payment record", err)
	}

	intent, err := s.Gateway.CreateIntent(ctx, amount, s.Currency,
		fmt.Sprintf("Payment for %d spots in %s match", len(in.SpotBooked), m.PitchName),
		map[string]string{
			"paymentId":  payment.ID,
			"bookingId":  booking.ID,
			"matchId":    m.ID,
			"userId":     userID,
			"spotBooked": joinSpots(in.SpotBooked),
			"teamId":     m.TeamID,
		})
	if err != nil {
		s.abandonPayment(ctx, payment)
		return nil, utils.GatewayErr("failed to initiate payment", err)
	}

	if err := s.Payments.SetStripeIntentID(ctx, payment.ID, intent.ID); err != nil {
		if cerr := s.Gateway.CancelIntent(ctx, intent.ID); cerr != nil {
			s.Logger.Warn("failed to cancel orphaned intent",
				zap.String("paymentId", payment.ID), zap.Error(cerr))
		}
		s.abandonPayment(ctx, payment)
		return nil, utils.InternalErr("failed to record payment intent", err)
	}

	s.Logger.Info("payment initiated",
		zap.String("paymentId", payment.ID),
		zap.String("matchId", m.ID),
		zap.Ints("spots", in.SpotBooked),
		zap.Float64("amount", amount))

	return &PaymentInitResult{
		PaymentID:    payment.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
		SpotBooked:   in.SpotBooked,
	}, nil
}

// abandonPayment compensates a reservation whose gateway session never
// opened: the spots go back to the match, then the payment record is
// closed. The payment is only marked canceled once the spots are
// released, so a partial compensation leaves it PENDING and intentless
// for the stale sweep to finish.
func (s *DefaultReservationService) abandonPayment(ctx context.Context, payment *models.Payment) {
	if err := s.Matches.ReleaseSpots(ctx, payment.MatchID, payment.SpotBooked); err != nil {
		s.Logger.Warn("failed to release spots after aborted initiation",
			zap.String("paymentId", payment.ID), zap.Error(err))
		return
	}
	if err := s.Payments.MarkCanceled(ctx, payment.ID, "gateway session failed to open"); err != nil {
		s.Logger.Warn("failed to close aborted payment",
			zap.String("paymentId", payment.ID), zap.Error(err))
	}
}

// CancelPayment is the user-initiated abandonment path, valid only
// while the payment is PENDING.
func (s *DefaultReservationService) CancelPayment(ctx context.Context, userID, paymentID string) error {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrNotFound) {
			return utils.NotFoundErr("payment not found")
		}
		return utils.InternalErr("failed to fetch payment", err)
	}
	if payment.UserID != userID {
		return utils.ForbiddenErr("not your payment")
	}
	if payment.Status != models.PaymentStatusPending {
		return utils.ConflictErr("payment is no longer pending")
	}

	// An intentless payment means the gateway session never opened;
	// there is nothing to cancel upstream.
	if payment.StripePaymentIntentID != "" {
		if err := s.Gateway.CancelIntent(ctx, payment.StripePaymentIntentID); err != nil {
			return utils.GatewayErr("failed to cancel payment", err)
		}
	}

	if err := s.Matches.ReleaseSpots(ctx, payment.MatchID, payment.SpotBooked); err != nil {
		return utils.InternalErr("failed to release spots", err)
	}
	if err := s.Payments.MarkCanceled(ctx, paymentID, "canceled by user"); err != nil {
		return utils.InternalErr("failed to mark payment canceled", err)
	}

	s.Logger.Info("payment canceled by user",
		zap.String("paymentId", paymentID),
		zap.Ints("spotsReleased", payment.SpotBooked))
	return nil
}

func (s *DefaultReservationService) UserUpcomingMatches(ctx context.Context, userID string) ([]models.Match, error) {
	matches, err := s.Bookings.ListUpcomingMatchesByUser(ctx, userID)
	if err != nil {
		return nil, utils.InternalErr("failed to list joined matches", err)
	}
	return matches, nil
}

func (s *DefaultReservationService) PaymentStatus(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("payment not found")
		}
		return nil, utils.InternalErr("failed to fetch payment", err)
	}
	if payment.UserID != userID {
		return nil, utils.ForbiddenErr("not your payment")
	}
	return payment, nil
}

func joinSpots(spots []int) string {
	parts := make([]string, len(spots))
	for i, s := range spots {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
