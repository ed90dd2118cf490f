package match

import (
	"context"
	"errors"
	"time"

	bookingRepo "footyreserve/database/repository/booking"
	matchRepo "footyreserve/database/repository/match"
	paymentRepo "footyreserve/database/repository/payment"
	"footyreserve/models"
	"footyreserve/services/pricing"
	"footyreserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMatchService implements MatchService.
type DefaultMatchService struct {
	Matches          matchRepo.MatchRepository
	Bookings         bookingRepo.BookingRepository
	Payments         paymentRepo.PaymentRepository
	Logger           *zap.Logger
	Rates            pricing.Rates
	MaxActiveMatches int
}

func (s *DefaultMatchService) CreateMatch(ctx context.Context, adminID string, in CreateMatchInput) (*models.Match, error) {
	if in.TeamID == "" || in.PitchName == "" || in.Password == "" || in.MatchTime == "" {
		return nil, utils.ValidationErr("teamId, pitchName, matchTime and password are required")
	}
	if in.MatchDate.Before(time.Now()) {
		return nil, utils.ValidationErr("match date must be in the future")
	}

	breakdown, err := pricing.Quote(in.TotalPayout, in.Spots, s.Rates)
	if err != nil {
		return nil, utils.ValidationErr("total payout and spots must be positive")
	}

	active, err := s.Matches.CountActiveByAdmin(ctx, adminID)
	if err != nil {
		return nil, utils.InternalErr("failed to count active matches", err)
	}
	if active >= s.MaxActiveMatches {
		return nil, utils.ValidationErr("active match limit reached")
	}

	if _, err := s.Matches.GetByTeamID(ctx, in.TeamID); err == nil {
		return nil, utils.ConflictErr("team ID already in use, choose another")
	} else if !errors.Is(err, matchRepo.ErrNotFound) {
		return nil, utils.InternalErr("failed to check team ID", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.InternalErr("failed to hash match password", err)
	}

	m := &models.Match{
		ID:             uuid.New().String(),
		TeamID:         in.TeamID,
		AdminID:        adminID,
		PitchName:      in.PitchName,
		MatchDate:      in.MatchDate,
		MatchTime:      in.MatchTime,
		Spots:          in.Spots,
		BookedSpots:    []int{},
		Pricing:        breakdown,
		Password:       string(hashed),
		Status:         models.MatchStatusActive,
		AccountDetails: in.AccountDetails,
		AutoPayout:     in.AutoPayout,
	}
	if err := s.Matches.Create(ctx, m); err != nil {
		return nil, utils.InternalErr("failed to create match", err)
	}

	s.Logger.Info("match created",
		zap.String("matchId", m.ID),
		zap.String("teamId", m.TeamID),
		zap.Int("spots", m.Spots))
	return m, nil
}

func (s *DefaultMatchService) UpdateMatch(ctx context.Context, adminID, matchID string, in UpdateMatchInput) (*models.Match, error) {
	m, err := s.ownedMatch(ctx, adminID, matchID)
	if err != nil {
		return nil, err
	}

	if in.PitchName != nil {
		m.PitchName = *in.PitchName
	}
	if in.MatchDate != nil {
		if in.MatchDate.Before(time.Now()) {
			return nil, utils.ValidationErr("match date must be in the future")
		}
		m.MatchDate = *in.MatchDate
	}
	if in.MatchTime != nil {
		m.MatchTime = *in.MatchTime
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, utils.InternalErr("failed to hash match password", err)
		}
		m.Password = string(hashed)
	}

	if err := s.Matches.Update(ctx, m); err != nil {
		return nil, utils.InternalErr("failed to update match", err)
	}
	return m, nil
}

func (s *DefaultMatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := s.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("match not found")
		}
		return nil, utils.InternalErr("failed to fetch match", err)
	}
	return m, nil
}

func (s *DefaultMatchService) AdminUpcomingMatches(ctx context.Context, adminID string) ([]models.Match, error) {
	matches, err := s.Matches.ListUpcomingByAdmin(ctx, adminID, time.Now())
	if err != nil {
		return nil, utils.InternalErr("failed to list matches", err)
	}
	return matches, nil
}

func (s *DefaultMatchService) CancelMatch(ctx context.Context, adminID, matchID string) error {
	if _, err := s.ownedMatch(ctx, adminID, matchID); err != nil {
		return err
	}
	err := s.Matches.SetStatusIf(ctx, matchID,
		[]string{models.MatchStatusActive, models.MatchStatusFullyBooked},
		models.MatchStatusCancelled)
	if errors.Is(err, matchRepo.ErrStatusConflict) {
		return utils.ConflictErr("match can no longer be cancelled")
	}
	if err != nil {
		return utils.InternalErr("failed to cancel match", err)
	}
	s.Logger.Info("match cancelled", zap.String("matchId", matchID))
	return nil
}

// RemovePlayer deletes a user's booking before any payment has settled
// and blacklists them. Confirmed bookings cannot be removed this way.
func (s *DefaultMatchService) RemovePlayer(ctx context.Context, adminID, matchID, userID string) error {
	if _, err := s.ownedMatch(ctx, adminID, matchID); err != nil {
		return err
	}

	booking, err := s.Bookings.GetByMatchAndUser(ctx, matchID, userID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.NotFoundErr("booking not found")
		}
		return utils.InternalErr("failed to fetch booking", err)
	}

	if err := s.Bookings.DeleteUnpaid(ctx, booking.ID); err != nil {
		if errors.Is(err, bookingRepo.ErrAlreadyPaid) {
			return utils.ConflictErr("player has paid for spots and cannot be removed")
		}
		return utils.InternalErr("failed to remove booking", err)
	}

	if err := s.Matches.AddToBlacklist(ctx, matchID, userID); err != nil {
		return utils.InternalErr("failed to blacklist user", err)
	}

	s.Logger.Info("player removed from match",
		zap.String("matchId", matchID),
		zap.String("userId", userID))
	return nil
}

func (s *DefaultMatchService) Roster(ctx context.Context, matchID string) ([]models.Booking, error) {
	bookings, err := s.Bookings.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, utils.InternalErr("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *DefaultMatchService) MatchFinances(ctx context.Context, adminID, matchID string) (*Finances, error) {
	m, err := s.ownedMatch(ctx, adminID, matchID)
	if err != nil {
		return nil, err
	}

	payments, err := s.Payments.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, utils.InternalErr("failed to list payments", err)
	}

	var collected float64
	for _, p := range payments {
		if p.Status == models.PaymentStatusSuccess {
			collected += p.Amount
		}
	}

	platformFee := m.Pricing.PlatformFeePerSpot * float64(m.Spots)
	return &Finances{
		TotalSpots:     m.Spots,
		SpotsBooked:    m.SpotsBooked,
		Pricing:        m.Pricing,
		TotalCollected: collected,
		PlatformFee:    platformFee,
		ExpectedPayout: m.Pricing.BasePricePerSpot * float64(m.Spots),
		PayoutStatus:   m.Status,
		PayoutRef:      m.PayoutRef,
		Payments:       payments,
	}, nil
}

// ownedMatch fetches a match and verifies the caller administers it.
func (s *DefaultMatchService) ownedMatch(ctx context.Context, adminID, matchID string) (*models.Match, error) {
	m, err := s.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("match not found")
		}
		return nil, utils.InternalErr("failed to fetch match", err)
	}
	if m.AdminID != adminID {
		return nil, utils.ForbiddenErr("not authorized for this match")
	}
	return m, nil
}
