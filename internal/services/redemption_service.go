package services

import (
	"context"
	"errors"
	"time"

	"flashoffers/internal/events"
	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedemptionService is the venue-side, two-phase interface: staff inspect a
// claim with Validate, then commit it with Redeem. The split is deliberate —
// Validate never mutates, Redeem is exactly-once.
type RedemptionService interface {
	Validate(ctx context.Context, venueID primitive.ObjectID, token string) (*models.FlashOfferClaim, error)
	Redeem(ctx context.Context, claimID, redeemerID primitive.ObjectID) (*models.FlashOfferClaim, error)
}

type redemptionService struct {
	claimRepo interfaces.ClaimRepository
	offerRepo interfaces.OfferRepository
	bus       *events.Bus
	logger    *logger.Logger
}

func NewRedemptionService(
	claimRepo interfaces.ClaimRepository,
	offerRepo interfaces.OfferRepository,
	bus *events.Bus,
	log *logger.Logger,
) RedemptionService {
	return &redemptionService{
		claimRepo: claimRepo,
		offerRepo: offerRepo,
		bus:       bus,
		logger:    log,
	}
}

// Validate looks up the claim behind a token. Read-only; each failure mode
// gets its own error so staff see why a token is unusable.
func (s *redemptionService) Validate(ctx context.Context, venueID primitive.ObjectID, token string) (*models.FlashOfferClaim, error) {
	claim, err := s.claimRepo.GetByVenueToken(ctx, venueID, token)
	if err != nil {
		return nil, err
	}

	switch {
	case claim.Status == models.ClaimStatusRedeemed:
		return nil, models.ErrAlreadyRedeemed
	case claim.IsExpired(time.Now()):
		return nil, models.ErrTokenExpired
	}
	return claim, nil
}

// Redeem re-validates the claim transactionally in the same conditional
// update that flips it to redeemed. Losing a race to another actor is
// reported as RaceConditionError carrying the status that won.
func (s *redemptionService) Redeem(ctx context.Context, claimID, redeemerID primitive.ObjectID) (*models.FlashOfferClaim, error) {
	now := time.Now()

	claim, err := s.claimRepo.MarkRedeemed(ctx, claimID, redeemerID, now)
	if err == nil {
		s.logger.WithClaimID(claim.ID).
			WithField("redeemed_by", redeemerID.Hex()).
			Info("claim redeemed")

		// Display counter only; failure here never unwinds the redemption.
		if err := s.offerRepo.IncrementRedemptions(ctx, claim.OfferID); err != nil {
			s.logger.WithError(err).WithOfferID(claim.OfferID).Warn("failed to bump redemptions counter")
		}

		s.bus.Publish(events.Event{
			Type:    events.EventClaimRedeemed,
			OfferID: claim.OfferID,
			VenueID: claim.VenueID,
			ClaimID: claim.ID,
			Data:    map[string]interface{}{"redeemed_by": redeemerID.Hex()},
		})
		return claim, nil
	}
	if !errors.Is(err, models.ErrClaimNotFound) {
		return nil, err
	}

	// The guard failed. Re-read to distinguish a missing claim from one
	// whose state changed underneath us.
	current, getErr := s.claimRepo.GetByID(ctx, claimID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status == models.ClaimStatusActive && current.IsExpired(now) {
		// TTL elapsed but the sweep has not visited it yet.
		return nil, models.ErrTokenExpired
	}
	return nil, &models.RaceConditionError{ClaimStatus: current.Status}
}
