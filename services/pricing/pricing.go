// Package pricing computes the per-spot price breakdown for a match.
// Pure arithmetic, no I/O.
package pricing

import (
	"errors"
	"math"

	"footyreserve/models"
)

// ErrInvalidInput is returned when the payout target or spot count is not positive.
var ErrInvalidInput = errors.New("pricing: total payout and spots must be positive")

// Rates configures the fee model. Rates are fractions of the final
// price; FixedFee is a flat per-transaction charge in pounds.
type Rates struct {
	PlatformRate float64
	StripeRate   float64
	StripeFixed  float64
}

// round2 rounds to two decimal places of currency.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Quote computes the price a player must pay per spot so that, after
// the platform and Stripe fees come off, the organizer still nets
// totalPayout/spots per spot:
//
//	final = (base + fixedFee) / (1 - platformRate - stripeRate)
func Quote(totalPayout float64, spots int, rates Rates) (models.Pricing, error) {
	if totalPayout <= 0 || spots <= 0 {
		return models.Pricing{}, ErrInvalidInput
	}

	base := totalPayout / float64(spots)
	final := (base + rates.StripeFixed) / (1 - rates.PlatformRate - rates.StripeRate)
	platformFee := final * rates.PlatformRate
	stripeFee := final*rates.StripeRate + rates.StripeFixed

	p := models.Pricing{
		BasePricePerSpot:   round2(base),
		PlatformFeePerSpot: round2(platformFee),
		StripeFeePerSpot:   round2(stripeFee),
		FinalPricePerSpot:  round2(final),
		PlatformFeeRate:    rates.PlatformRate,
		StripeFeeRate:      rates.StripeRate,
		StripeFixedFee:     rates.StripeFixed,
	}
	p.TotalExpected = round2(p.FinalPricePerSpot * float64(spots))
	return p, nil
}
