package services

import (
	"context"
	"errors"
	"time"

	"flashoffers/internal/events"
	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"
	"flashoffers/pkg/logger"
)

// SweepService is the time-based reconciler: it expires stale active claims
// and hands their slots back to the offer, and it persists the expired flag
// on offers whose window closed. Every transition it performs uses the same
// guarded conditional updates as the synchronous path, so a sweep can never
// race a concurrent redeem into a double spend.
type SweepService struct {
	offerRepo interfaces.OfferRepository
	claimRepo interfaces.ClaimRepository
	bus       *events.Bus
	interval  time.Duration
	logger    *logger.Logger
}

func NewSweepService(
	offerRepo interfaces.OfferRepository,
	claimRepo interfaces.ClaimRepository,
	bus *events.Bus,
	interval time.Duration,
	log *logger.Logger,
) *SweepService {
	if interval <= 0 {
		interval = utils.DefaultSweepInterval
	}
	return &SweepService{
		offerRepo: offerRepo,
		claimRepo: claimRepo,
		bus:       bus,
		interval:  interval,
		logger:    log,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("claim sweep started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("claim sweep stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, utils.DefaultSweepTimeout)
			if err := s.RunOnce(runCtx); err != nil {
				s.logger.WithError(err).Warn("sweep run failed")
			}
			cancel()
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *SweepService) RunOnce(ctx context.Context) error {
	now := time.Now()

	if expired, err := s.offerRepo.MarkExpired(ctx, now); err != nil {
		s.logger.WithError(err).Warn("failed to terminalize expired offers")
	} else if expired > 0 {
		s.logger.WithField("offers", expired).Debug("terminalized expired offers")
	}

	stale, err := s.claimRepo.ListStaleActive(ctx, now, utils.SweepBatchSize)
	if err != nil {
		return err
	}

	for _, candidate := range stale {
		claim, err := s.claimRepo.MarkExpired(ctx, candidate.ID, now)
		if err != nil {
			if errors.Is(err, models.ErrClaimNotFound) {
				// Lost the race to a redeem; nothing to reconcile.
				continue
			}
			s.logger.WithError(err).WithClaimID(candidate.ID).Warn("failed to expire claim")
			continue
		}

		s.bus.Publish(events.Event{
			Type:    events.EventClaimExpired,
			OfferID: claim.OfferID,
			VenueID: claim.VenueID,
			ClaimID: claim.ID,
		})

		// Hand the slot back. A full offer still inside its window
		// becomes claimable again through this decrement.
		offer, err := s.offerRepo.ReleaseClaimSlot(ctx, claim.OfferID)
		if err != nil {
			s.logger.WithError(err).WithOfferID(claim.OfferID).Warn("failed to release claim slot")
			continue
		}

		if offer.ClaimedCount == offer.MaxClaims-1 && models.DeriveStatus(offer, now) == models.OfferStatusActive {
			s.bus.Publish(events.Event{
				Type:    events.EventOfferStatusChanged,
				OfferID: offer.ID,
				VenueID: offer.VenueID,
				Data:    map[string]interface{}{"status": models.OfferStatusActive},
			})
		}
	}

	return nil
}
