package settlement

import (
	"context"
	"errors"
	"fmt"

	"footyreserve/database"
	bookingRepo "footyreserve/database/repository/booking"
	matchRepo "footyreserve/database/repository/match"
	paymentRepo "footyreserve/database/repository/payment"
	"footyreserve/gateway"
	"footyreserve/models"
	"footyreserve/utils"

	"go.uber.org/zap"
)

// PayoutTrigger is the slice of the payout orchestrator the settlement
// processor needs for automatic payouts.
type PayoutTrigger interface {
	Initiate(ctx context.Context, matchID string) (string, float64, error)
}

// Processor applies gateway webhook events to durable state. Every
// transition is idempotent: redelivered events for a payment already in
// a terminal status are no-ops.
type Processor struct {
	Matches  matchRepo.MatchRepository
	Bookings bookingRepo.BookingRepository
	Payments paymentRepo.PaymentRepository
	Tx       database.TxRunner
	Payout   PayoutTrigger
	Logger   *zap.Logger
}

// Process dispatches a verified event to its transition function.
func (p *Processor) Process(ctx context.Context, ev *gateway.Event) error {
	switch ev.Kind {
	case gateway.EventPaymentSucceeded:
		return p.handleSucceeded(ctx, ev)
	case gateway.EventPaymentFailed:
		return p.handleFailed(ctx, ev)
	case gateway.EventPaymentCanceled:
		return p.handleCanceled(ctx, ev)
	case gateway.EventUnknown:
		p.Logger.Info("ignoring unhandled event type", zap.String("type", ev.Type))
		return nil
	default:
		return fmt.Errorf("unreachable event kind %d", ev.Kind)
	}
}

func (p *Processor) loadPayment(ctx context.Context, ev *gateway.Event) (*models.Payment, error) {
	paymentID := ev.Metadata["paymentId"]
	if paymentID == "" {
		return nil, utils.ValidationErr("event metadata missing paymentId")
	}
	payment, err := p.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrNotFound) {
			return nil, utils.NotFoundErr(fmt.Sprintf("payment record %s not found", paymentID))
		}
		return nil, utils.InternalErr("failed to fetch payment", err)
	}
	return payment, nil
}

// handleSucceeded settles a payment: the payment, booking and match
// mutations happen in one transaction. A success event is
// authoritative and settles the payment even if a failure or
// cancellation event was processed first.
func (p *Processor) handleSucceeded(ctx context.Context, ev *gateway.Event) error {
	payment, err := p.loadPayment(ctx, ev)
	if err != nil {
		return err
	}
	if payment.Status == models.PaymentStatusSuccess {
		p.Logger.Info("payment already settled, skipping",
			zap.String("paymentId", payment.ID))
		return nil
	}
	reclaimSpots := payment.Terminal() // spots were released by a prior failure/cancel

	var matchID = payment.MatchID
	err = p.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if reclaimSpots {
			if err := p.Matches.ReserveSpots(ctx, matchID, payment.SpotBooked); err != nil {
				if errors.Is(err, matchRepo.ErrSpotConflict) {
					// The spots were resold while this payment sat in a
					// failed state; the counter check below still guards
					// against overbooking by count.
					p.Logger.Warn("spots resold before late success event",
						zap.String("paymentId", payment.ID),
						zap.Ints("spots", payment.SpotBooked))
				} else {
					return err
				}
			}
		}

		if err := p.Payments.MarkSuccess(ctx, payment.ID, ev.ChargeID); err != nil {
			return err
		}

		m, err := p.Matches.GetByID(ctx, matchID)
		if err != nil {
			return err
		}

		count := len(payment.SpotBooked)
		// This must never trip given the atomic reservation, but a
		// violation here must abort the settlement rather than corrupt
		// the counters.
		if m.SpotsBooked+count > m.Spots {
			return utils.DiscrepancyErr(fmt.Sprintf(
				"overbooking detected on match %s: %d paid + %d settling > %d spots",
				matchID, m.SpotsBooked, count, m.Spots))
		}

		if err := p.Bookings.ApplySettlement(ctx, payment.BookingID, payment.Amount, payment.SpotBooked); err != nil {
			return err
		}

		updated, err := p.Matches.ConfirmSpotsPaid(ctx, matchID, count)
		if err != nil {
			return err
		}

		if updated.SpotsBooked >= updated.Spots && updated.Status == models.MatchStatusActive {
			if err := p.Matches.SetStatusIf(ctx, matchID,
				[]string{models.MatchStatusActive}, models.MatchStatusFullyBooked); err != nil &&
				!errors.Is(err, matchRepo.ErrStatusConflict) {
				return err
			}
		}

		collected, err := p.Payments.SumSuccessful(ctx, matchID)
		if err != nil {
			return err
		}
		// Per-payment amounts are penny-rounded, so their sum can land
		// a fraction below the product. Apply the same penny tolerance
		// the payout reconciliation uses.
		expected := updated.Pricing.FinalPricePerSpot * float64(updated.Spots)
		if collected >= expected-0.01 {
			if err := p.Matches.MarkPaidUp(ctx, matchID); err != nil &&
				!errors.Is(err, matchRepo.ErrStatusConflict) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.Logger.Info("payment settled",
		zap.String("paymentId", payment.ID),
		zap.String("matchId", matchID))

	// Auto payout runs outside the settlement transaction: its failure
	// is reported, never unwinds the committed payment.
	p.maybeAutoPayout(ctx, matchID)
	return nil
}

func (p *Processor) maybeAutoPayout(ctx context.Context, matchID string) {
	m, err := p.Matches.GetByID(ctx, matchID)
	if err != nil {
		p.Logger.Warn("auto payout: failed to reload match",
			zap.String("matchId", matchID), zap.Error(err))
		return
	}
	if !m.AutoPayout || m.Status != models.MatchStatusPaidUp || m.PayoutInitiated || m.PayoutRef != "" {
		return
	}

	if _, _, err := p.Payout.Initiate(ctx, matchID); err != nil {
		p.Logger.Error("auto payout failed after settlement",
			zap.String("matchId", matchID), zap.Error(err))
		return
	}
	p.Logger.Info("auto payout completed", zap.String("matchId", matchID))
}

// handleFailed releases the reserved spots and marks the payment
// FAILED. A payment already in any terminal status is left untouched;
// in particular a late failure can never overwrite SUCCESS.
func (p *Processor) handleFailed(ctx context.Context, ev *gateway.Event) error {
	payment, err := p.loadPayment(ctx, ev)
	if err != nil {
		return err
	}
	if payment.Terminal() {
		p.Logger.Info("failure event for terminal payment, skipping",
			zap.String("paymentId", payment.ID),
			zap.String("status", payment.Status))
		return nil
	}

	if err := p.Matches.ReleaseSpots(ctx, payment.MatchID, payment.SpotBooked); err != nil {
		return utils.InternalErr("failed to release spots", err)
	}

	reason := ev.FailureMessage
	if reason == "" {
		reason = "Payment failed"
	}
	if err := p.Payments.MarkFailed(ctx, payment.ID, reason); err != nil {
		return utils.InternalErr("failed to mark payment failed", err)
	}

	p.Logger.Info("payment failure recorded",
		zap.String("paymentId", payment.ID),
		zap.Ints("spotsReleased", payment.SpotBooked),
		zap.String("reason", reason))
	return nil
}

// handleCanceled mirrors handleFailed with a CANCELED terminal status.
func (p *Processor) handleCanceled(ctx context.Context, ev *gateway.Event) error {
	payment, err := p.loadPayment(ctx, ev)
	if err != nil {
		return err
	}
	if payment.Terminal() {
		return nil
	}

	if err := p.Matches.ReleaseSpots(ctx, payment.MatchID, payment.SpotBooked); err != nil {
		return utils.InternalErr("failed to release spots", err)
	}
	if err := p.Payments.MarkCanceled(ctx, payment.ID, "canceled at gateway"); err != nil {
		return utils.InternalErr("failed to mark payment canceled", err)
	}

	p.Logger.Info("payment canceled, spots released",
		zap.String("paymentId", payment.ID),
		zap.Ints("spotsReleased", payment.SpotBooked))
	return nil
}
