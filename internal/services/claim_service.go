package services

import (
	"context"
	"errors"
	"time"

	"flashoffers/internal/config"
	"flashoffers/internal/events"
	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transactor runs fn as a single atomic unit against the backing store.
// Everything fn does through the store either commits together or rolls
// back together.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error)
}

// ClaimService atomically reserves one of an offer's claim slots for a user
// and issues a claim record with a redemption token.
type ClaimService interface {
	Claim(ctx context.Context, offerID, userID primitive.ObjectID) (*models.FlashOfferClaim, error)
	GetClaim(ctx context.Context, claimID primitive.ObjectID) (*models.FlashOfferClaim, error)
	ListOfferClaims(ctx context.Context, offerID primitive.ObjectID) ([]*models.FlashOfferClaim, error)
}

type claimService struct {
	tx        Transactor
	offerRepo interfaces.OfferRepository
	claimRepo interfaces.ClaimRepository
	tokenGen  TokenGenerator
	bus       *events.Bus
	offersCfg *config.OffersConfig
	logger    *logger.Logger
}

func NewClaimService(
	tx Transactor,
	offerRepo interfaces.OfferRepository,
	claimRepo interfaces.ClaimRepository,
	tokenGen TokenGenerator,
	bus *events.Bus,
	offersCfg *config.OffersConfig,
	log *logger.Logger,
) ClaimService {
	return &claimService{
		tx:        tx,
		offerRepo: offerRepo,
		claimRepo: claimRepo,
		tokenGen:  tokenGen,
		bus:       bus,
		offersCfg: offersCfg,
		logger:    log,
	}
}

// Claim reserves a slot, generates a token and inserts the claim row in one
// transaction. The slot reservation is a guarded increment at the store, so
// of N concurrent claims against K remaining slots exactly min(N, K)
// commit; the rest fail with ErrOfferFull. If token generation or the
// insert fails after the increment, the whole transaction rolls back and
// the slot is never leaked.
func (s *claimService) Claim(ctx context.Context, offerID, userID primitive.ObjectID) (*models.FlashOfferClaim, error) {
	// Cheap pre-check for a friendlier error; the partial unique index is
	// what actually enforces one active claim per user per offer.
	if _, err := s.claimRepo.GetActiveByOfferUser(ctx, offerID, userID); err == nil {
		return nil, models.ErrDuplicateClaim
	} else if !errors.Is(err, models.ErrClaimNotFound) {
		return nil, err
	}

	now := time.Now()

	result, err := s.tx.InTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		offer, err := s.offerRepo.ReserveClaimSlot(txCtx, offerID, now)
		if err != nil {
			return nil, err
		}

		expiresAt := utils.MinTime(now.Add(s.offersCfg.ClaimTTL), offer.EndTime)

		// A token that passed the generator's existence check can still
		// lose an index-level race; retry inside the transaction.
		for attempt := 0; ; attempt++ {
			token, err := s.tokenGen.Generate(txCtx, offer.VenueID)
			if err != nil {
				return nil, err
			}

			claim := &models.FlashOfferClaim{
				OfferID:   offer.ID,
				VenueID:   offer.VenueID,
				UserID:    userID,
				Token:     token,
				ExpiresAt: expiresAt,
			}

			err = s.claimRepo.Create(txCtx, claim)
			if err == nil {
				return &claimResult{claim: claim, offer: offer}, nil
			}
			if errors.Is(err, models.ErrTokenCollision) && attempt < s.offersCfg.MaxTokenAttempts {
				continue
			}
			return nil, err
		}
	})
	if err != nil {
		return nil, err
	}

	cr := result.(*claimResult)
	s.logger.WithOfferID(offerID).
		WithUserID(userID).
		WithClaimID(cr.claim.ID).
		Info("claim created")

	s.bus.Publish(events.Event{
		Type:    events.EventOfferClaimed,
		OfferID: cr.offer.ID,
		VenueID: cr.offer.VenueID,
		ClaimID: cr.claim.ID,
		Data: map[string]interface{}{
			"claimed_count": cr.offer.ClaimedCount,
			"max_claims":    cr.offer.MaxClaims,
		},
	})
	if cr.offer.ClaimedCount >= cr.offer.MaxClaims {
		s.bus.Publish(events.Event{
			Type:    events.EventOfferStatusChanged,
			OfferID: cr.offer.ID,
			VenueID: cr.offer.VenueID,
			Data:    map[string]interface{}{"status": models.OfferStatusFull},
		})
	}

	return cr.claim, nil
}

type claimResult struct {
	claim *models.FlashOfferClaim
	offer *models.FlashOffer
}

func (s *claimService) GetClaim(ctx context.Context, claimID primitive.ObjectID) (*models.FlashOfferClaim, error) {
	return s.claimRepo.GetByID(ctx, claimID)
}

func (s *claimService) ListOfferClaims(ctx context.Context, offerID primitive.ObjectID) ([]*models.FlashOfferClaim, error) {
	return s.claimRepo.ListByOffer(ctx, offerID)
}
