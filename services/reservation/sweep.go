package reservation

import (
	"context"
	"time"

	"footyreserve/gateway"

	"go.uber.org/zap"
)

// SweepStale finds PENDING payments older than the staleness window,
// checks each against gateway truth, cancels the unresolved ones and
// releases their spot numbers back to the match. Payments the gateway
// reports as succeeded or processing are left alone; the webhook will
// settle them.
func (s *DefaultReservationService) SweepStale(ctx context.Context, matchID string) (int, error) {
	cutoff := time.Now().Add(-s.StaleWindow)
	stale, err := s.Payments.FindStalePending(ctx, matchID, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	s.Logger.Info("found stale pending payments",
		zap.String("matchId", matchID),
		zap.Int("count", len(stale)))

	var spotsToRelease []int
	swept := 0

	for _, payment := range stale {
		// No intent id means the gateway session never opened, so the
		// payment is cancelable without an upstream round trip.
		if payment.StripePaymentIntentID != "" {
			intent, err := s.Gateway.RetrieveIntent(ctx, payment.StripePaymentIntentID)
			if err != nil {
				// Skip this payment, continue with the rest.
				s.Logger.Warn("failed to check gateway for stale payment",
					zap.String("paymentId", payment.ID), zap.Error(err))
				continue
			}

			if intent.Status == gateway.IntentStatusSucceeded || intent.Status == gateway.IntentStatusProcessing {
				continue
			}

			// Any other live status, mid-3DS included, must be canceled
			// upstream so the payer cannot complete a checkout whose
			// spots are being released.
			if intent.Status != gateway.IntentStatusCanceled {
				if err := s.Gateway.CancelIntent(ctx, payment.StripePaymentIntentID); err != nil {
					s.Logger.Warn("failed to cancel stale intent upstream",
						zap.String("paymentId", payment.ID), zap.Error(err))
					continue
				}
			}
		}

		if err := s.Payments.MarkCanceled(ctx, payment.ID, "abandoned - auto-canceled after staleness window"); err != nil {
			s.Logger.Warn("failed to mark stale payment canceled",
				zap.String("paymentId", payment.ID), zap.Error(err))
			continue
		}

		spotsToRelease = append(spotsToRelease, payment.SpotBooked...)
		swept++
		s.Logger.Info("canceled stale payment", zap.String("paymentId", payment.ID))
	}

	if len(spotsToRelease) > 0 {
		if err := s.Matches.ReleaseSpots(ctx, matchID, spotsToRelease); err != nil {
			return swept, err
		}
		s.Logger.Info("released stale spots",
			zap.String("matchId", matchID),
			zap.Ints("spots", spotsToRelease))
	}
	return swept, nil
}

// SweepAll runs the stale sweep for every match that currently has a
// stale PENDING payment. Driven by the background sweeper.
func (s *DefaultReservationService) SweepAll(ctx context.Context) error {
	cutoff := time.Now().Add(-s.StaleWindow)
	matchIDs, err := s.Payments.DistinctStaleMatches(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, matchID := range matchIDs {
		if _, err := s.SweepStale(ctx, matchID); err != nil {
			s.Logger.Warn("sweep failed for match",
				zap.String("matchId", matchID), zap.Error(err))
		}
	}
	return nil
}
