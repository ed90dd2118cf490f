package payout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	matchRepo "footyreserve/database/repository/match"
	paymentRepo "footyreserve/database/repository/payment"
	userRepo "footyreserve/database/repository/user"
	"footyreserve/gateway"
	"footyreserve/models"
	"footyreserve/utils"

	"go.uber.org/zap"
)

// epsilon is the currency-rounding tolerance for reconciliation.
const epsilon = 0.01

// Orchestrator performs the guarded, at-most-once transfer of
// collected funds to the organizer's connected account.
type Orchestrator struct {
	Matches  matchRepo.MatchRepository
	Payments paymentRepo.PaymentRepository
	Users    userRepo.UserRepository
	Gateway  gateway.PaymentGateway
	Logger   *zap.Logger
	Currency string
}

// Initiate runs the payout protocol for a match and returns the
// transfer reference and net amount. The payout in-progress flag is a
// compare-and-set lock: concurrent calls produce exactly one transfer.
// Only a gateway failure leaves the payout retryable; a reconciliation
// discrepancy requires manual intervention.
func (o *Orchestrator) Initiate(ctx context.Context, matchID string) (string, float64, error) {
	m, err := o.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return "", 0, utils.NotFoundErr("match not found")
		}
		return "", 0, utils.InternalErr("failed to fetch match", err)
	}

	destination := m.AccountDetails.StripeAccountID
	if destination == "" {
		return "", 0, utils.ValidationErr("team payout account not set up")
	}
	if m.PayoutRef != "" || m.PayoutInitiated {
		return "", 0, utils.ConflictErr("payout already processed or in progress")
	}

	if err := o.Matches.AcquirePayoutLock(ctx, matchID); err != nil {
		if errors.Is(err, matchRepo.ErrPayoutLocked) {
			return "", 0, utils.ConflictErr("payout already in progress")
		}
		return "", 0, utils.InternalErr("failed to acquire payout lock", err)
	}

	collected, err := o.Payments.SumSuccessful(ctx, matchID)
	if err != nil {
		o.unlock(ctx, matchID, models.PayoutFailed, "failed to total collected payments")
		return "", 0, utils.InternalErr("failed to total collected payments", err)
	}
	expected := m.Pricing.FinalPricePerSpot * float64(m.Spots)

	if math.Abs(collected-expected) > epsilon {
		msg := fmt.Sprintf("Expected £%.2f, collected £%.2f", expected, collected)
		o.unlock(ctx, matchID, models.PayoutDiscrepancy, msg)
		return "", 0, utils.DiscrepancyErr("payout discrepancy: " + msg)
	}

	// The organizer nets the base price; platform and gateway fees
	// stay behind.
	payoutAmount := m.Pricing.BasePricePerSpot * float64(m.Spots)

	transferID, err := o.Gateway.CreateTransfer(ctx, payoutAmount, o.Currency, destination,
		"payout_"+matchID,
		map[string]string{
			"matchId": matchID,
			"teamId":  m.TeamID,
		})
	if err != nil {
		o.unlock(ctx, matchID, models.PayoutFailed, err.Error())
		return "", 0, utils.GatewayErr("payout transfer failed, please retry later", err)
	}

	if err := o.Matches.CompletePayout(ctx, matchID, transferID, payoutAmount); err != nil {
		// The transfer went through; surface the bookkeeping failure
		// loudly but do not release the lock, the idempotency key
		// protects any retry.
		o.Logger.Error("transfer succeeded but payout bookkeeping failed",
			zap.String("matchId", matchID),
			zap.String("transferId", transferID),
			zap.Error(err))
		return "", 0, utils.InternalErr("failed to record payout", err)
	}

	o.Logger.Info("payout successful",
		zap.String("matchId", matchID),
		zap.String("transferId", transferID),
		zap.Float64("amount", payoutAmount))
	return transferID, payoutAmount, nil
}

// AdminInitiate is the operator entry point: verifies ownership before
// running the payout protocol.
func (o *Orchestrator) AdminInitiate(ctx context.Context, adminID, matchID string) (string, float64, error) {
	m, err := o.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return "", 0, utils.NotFoundErr("match not found")
		}
		return "", 0, utils.InternalErr("failed to fetch match", err)
	}
	if m.AdminID != adminID {
		return "", 0, utils.ForbiddenErr("not authorized for this match")
	}
	return o.Initiate(ctx, matchID)
}

// SetupAccount creates a Stripe Connect Express account for the
// match's payout destination and returns the onboarding URL. The
// account id is stored on the match and on the admin's saved account
// details.
func (o *Orchestrator) SetupAccount(ctx context.Context, adminID, matchID string) (accountID, onboardingURL string, err error) {
	m, err := o.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return "", "", utils.NotFoundErr("match not found")
		}
		return "", "", utils.InternalErr("failed to fetch match", err)
	}
	if m.AdminID != adminID {
		return "", "", utils.ForbiddenErr("not authorized for this match")
	}

	admin, err := o.Users.GetByID(ctx, adminID)
	if err != nil {
		return "", "", utils.InternalErr("failed to fetch admin", err)
	}

	accountID, err = o.Gateway.CreateConnectedAccount(ctx, admin.Email, map[string]string{
		"matchId": matchID,
		"adminId": adminID,
	})
	if err != nil {
		return "", "", utils.GatewayErr("failed to setup payout account", err)
	}

	onboardingURL, err = o.Gateway.CreateOnboardingLink(ctx, accountID)
	if err != nil {
		return "", "", utils.GatewayErr("failed to create onboarding link", err)
	}

	if err := o.Matches.SetStripeAccount(ctx, matchID, accountID); err != nil {
		return "", "", utils.InternalErr("failed to store payout account", err)
	}

	o.saveAdminAccount(ctx, admin, m.AccountDetails, accountID)
	return accountID, onboardingURL, nil
}

// saveAdminAccount upserts the connected account into the admin's
// saved payout destinations, keyed by bank details.
func (o *Orchestrator) saveAdminAccount(ctx context.Context, admin *models.User, details models.AccountDetails, accountID string) {
	now := time.Now()
	details.StripeAccountID = accountID
	details.ConnectedAt = &now

	replaced := false
	for i, ad := range admin.AccountDetails {
		if ad.BankName == details.BankName &&
			ad.AccountNumber == details.AccountNumber &&
			ad.SortCode == details.SortCode {
			admin.AccountDetails[i] = details
			replaced = true
			break
		}
	}
	if !replaced {
		admin.AccountDetails = append(admin.AccountDetails, details)
	}

	if err := o.Users.Update(ctx, admin); err != nil {
		o.Logger.Warn("failed to save payout account on admin",
			zap.String("adminId", admin.ID), zap.Error(err))
	}
}

func (o *Orchestrator) unlock(ctx context.Context, matchID, status, message string) {
	record := models.PayoutRecord{Status: status, Message: message, Date: time.Now()}
	if err := o.Matches.ReleasePayoutLock(ctx, matchID, record); err != nil {
		o.Logger.Error("failed to release payout lock",
			zap.String("matchId", matchID), zap.Error(err))
	}
}
