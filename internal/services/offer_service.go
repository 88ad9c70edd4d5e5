package services

import (
	"context"
	"errors"
	"time"

	"flashoffers/internal/events"
	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"
	"flashoffers/internal/validators"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferService is the external surface for venue operators: creation
// (gated by the rate limiter), cancellation, and listing with derived
// statuses.
type OfferService interface {
	CreateOffer(ctx context.Context, venueID primitive.ObjectID, req *models.CreateOfferRequest) (*models.FlashOffer, error)
	CancelOffer(ctx context.Context, offerID primitive.ObjectID) error
	GetOffer(ctx context.Context, offerID primitive.ObjectID) (*models.FlashOffer, error)
	ListOffers(ctx context.Context, venueID primitive.ObjectID, statusFilter models.OfferStatus, params *utils.PaginationParams) ([]*models.FlashOffer, int64, error)
	GetRateLimitStatus(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error)
}

type offerService struct {
	offerRepo    interfaces.OfferRepository
	venueRepo    interfaces.VenueRepository
	rateLimiter  RateLimitService
	notification NotificationService
	bus          *events.Bus
	logger       *logger.Logger
}

func NewOfferService(
	offerRepo interfaces.OfferRepository,
	venueRepo interfaces.VenueRepository,
	rateLimiter RateLimitService,
	notification NotificationService,
	bus *events.Bus,
	log *logger.Logger,
) OfferService {
	return &offerService{
		offerRepo:    offerRepo,
		venueRepo:    venueRepo,
		rateLimiter:  rateLimiter,
		notification: notification,
		bus:          bus,
		logger:       log,
	}
}

func (s *offerService) CreateOffer(ctx context.Context, venueID primitive.ObjectID, req *models.CreateOfferRequest) (*models.FlashOffer, error) {
	if errs := validators.ValidateCreateOffer(req); len(errs) > 0 {
		return nil, errs
	}

	venue, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}

	// Quota first: the reservation is the same guarded-increment pattern
	// as claim slots, so concurrent creations cannot overshoot the tier.
	if _, err := s.rateLimiter.CheckAndReserve(ctx, venueID); err != nil {
		return nil, err
	}

	offer := &models.FlashOffer{
		VenueID:             venueID,
		Title:               req.Title,
		Description:         req.Description,
		ValueCap:            req.ValueCap,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		MaxClaims:           req.MaxClaims,
		RadiusMiles:         req.RadiusMiles,
		TargetFavoritesOnly: req.TargetFavoritesOnly,
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		// Give the reserved quota slot back; the offer never existed.
		if relErr := s.rateLimiter.Release(ctx, venueID); relErr != nil {
			s.logger.WithError(relErr).WithVenueID(venueID).Warn("failed to release rate-limit slot")
		}
		return nil, err
	}

	s.logger.WithOfferID(offer.ID).
		WithVenueID(venueID).
		WithField("max_claims", offer.MaxClaims).
		Info("offer created")

	s.notification.NotifyOfferCreated(venue, offer)
	s.bus.Publish(events.Event{
		Type:    events.EventOfferCreated,
		OfferID: offer.ID,
		VenueID: venueID,
		Data:    map[string]interface{}{"title": offer.Title},
	})

	return offer, nil
}

func (s *offerService) CancelOffer(ctx context.Context, offerID primitive.ObjectID) error {
	offer, err := s.offerRepo.Cancel(ctx, offerID, time.Now())
	if err != nil {
		return err
	}

	s.logger.WithOfferID(offerID).Info("offer cancelled")
	s.bus.Publish(events.Event{
		Type:    events.EventOfferCancelled,
		OfferID: offer.ID,
		VenueID: offer.VenueID,
		Data:    map[string]interface{}{"status": models.OfferStatusCancelled},
	})
	return nil
}

func (s *offerService) GetOffer(ctx context.Context, offerID primitive.ObjectID) (*models.FlashOffer, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	offer.Status = models.DeriveStatus(offer, time.Now())

	// Views are display-only; losing one is fine.
	if err := s.offerRepo.IncrementViews(ctx, offerID); err != nil {
		s.logger.WithError(err).WithOfferID(offerID).Debug("failed to bump views counter")
	}
	return offer, nil
}

func (s *offerService) ListOffers(ctx context.Context, venueID primitive.ObjectID, statusFilter models.OfferStatus, params *utils.PaginationParams) ([]*models.FlashOffer, int64, error) {
	offers, total, err := s.offerRepo.ListByVenue(ctx, venueID, params)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	for _, offer := range offers {
		offer.Status = models.DeriveStatus(offer, now)
	}

	if statusFilter == "" {
		return offers, total, nil
	}

	// The filter applies to the derived status, which the store cannot
	// compute; filter the page in memory.
	filtered := offers[:0]
	for _, offer := range offers {
		if offer.Status == statusFilter {
			filtered = append(filtered, offer)
		}
	}
	return filtered, total, nil
}

func (s *offerService) GetRateLimitStatus(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error) {
	status, err := s.rateLimiter.Status(ctx, venueID)
	if err != nil && !errors.Is(err, models.ErrVenueNotFound) {
		return nil, err
	}
	return status, err
}
