package services

import (
	"context"
	"fmt"
	"time"

	"flashoffers/internal/config"
	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CounterStore is the atomic counter surface the rate limiter needs;
// cache.RedisCache implements it with a Lua guarded increment.
type CounterStore interface {
	GuardedIncrement(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)
	Decrement(ctx context.Context, key string) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
}

// RateLimitService gates offer creation against a venue's daily quota. The
// day boundary follows the venue's configured timezone.
type RateLimitService interface {
	// CheckAndReserve consumes one creation slot for today, or fails with
	// *models.RateLimitExceededError.
	CheckAndReserve(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error)
	// Release compensates a reservation whose offer never got persisted.
	Release(ctx context.Context, venueID primitive.ObjectID) error
	// Status reports the venue-day counter without consuming a slot.
	Status(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error)
}

type rateLimitService struct {
	counters  CounterStore
	venueRepo interfaces.VenueRepository
	offersCfg *config.OffersConfig
	logger    *logger.Logger
}

func NewRateLimitService(
	counters CounterStore,
	venueRepo interfaces.VenueRepository,
	offersCfg *config.OffersConfig,
	log *logger.Logger,
) RateLimitService {
	return &rateLimitService{
		counters:  counters,
		venueRepo: venueRepo,
		offersCfg: offersCfg,
		logger:    log,
	}
}

func rateLimitKey(venueID primitive.ObjectID, now time.Time, loc *time.Location) string {
	return fmt.Sprintf("ratelimit:offers:%s:%s", venueID.Hex(), utils.DayKey(now, loc))
}

func (s *rateLimitService) CheckAndReserve(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error) {
	venue, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loc := venue.Location()
	resetsAt := utils.NextMidnight(now, loc)

	limit, unlimited := s.offersCfg.DailyLimit(venue.Tier)
	if unlimited {
		return &models.RateLimitStatus{
			VenueID:   venueID,
			Unlimited: true,
			ResetsAt:  resetsAt,
		}, nil
	}

	key := rateLimitKey(venueID, now, loc)
	count, allowed, err := s.counters.GuardedIncrement(ctx, key, int64(limit), time.Until(resetsAt))
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.WithVenueID(venueID).
			WithField("limit", limit).
			Info("daily offer limit reached")
		return nil, &models.RateLimitExceededError{Limit: limit, ResetsAt: resetsAt}
	}

	return &models.RateLimitStatus{
		VenueID:   venueID,
		Count:     int(count),
		Limit:     limit,
		Remaining: limit - int(count),
		ResetsAt:  resetsAt,
	}, nil
}

func (s *rateLimitService) Release(ctx context.Context, venueID primitive.ObjectID) error {
	venue, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		return err
	}
	if _, unlimited := s.offersCfg.DailyLimit(venue.Tier); unlimited {
		return nil
	}

	now := time.Now()
	_, err = s.counters.Decrement(ctx, rateLimitKey(venueID, now, venue.Location()))
	return err
}

func (s *rateLimitService) Status(ctx context.Context, venueID primitive.ObjectID) (*models.RateLimitStatus, error) {
	venue, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loc := venue.Location()
	resetsAt := utils.NextMidnight(now, loc)

	limit, unlimited := s.offersCfg.DailyLimit(venue.Tier)
	if unlimited {
		return &models.RateLimitStatus{
			VenueID:   venueID,
			Unlimited: true,
			ResetsAt:  resetsAt,
		}, nil
	}

	count, err := s.counters.GetCounter(ctx, rateLimitKey(venueID, now, loc))
	if err != nil {
		return nil, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &models.RateLimitStatus{
		VenueID:   venueID,
		Count:     int(count),
		Limit:     limit,
		Remaining: remaining,
		ResetsAt:  resetsAt,
	}, nil
}
