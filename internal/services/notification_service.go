package services

import (
	"context"
	"fmt"
	"time"

	"flashoffers/internal/config"
	"flashoffers/internal/models"
	"flashoffers/pkg/logger"
	"flashoffers/pkg/push"
)

const notificationTimeout = 30 * time.Second

// NotificationService alerts nearby eligible users when a venue publishes
// an offer. It is a collaborator on the far side of the transaction
// boundary: dispatch happens after commit and failures are logged, never
// propagated.
type NotificationService interface {
	NotifyOfferCreated(venue *models.Venue, offer *models.FlashOffer)
}

type notificationService struct {
	provider push.PushProvider
	cfg      *config.PushConfig
	logger   *logger.Logger
}

func NewNotificationService(provider push.PushProvider, cfg *config.PushConfig, log *logger.Logger) NotificationService {
	return &notificationService{
		provider: provider,
		cfg:      cfg,
		logger:   log,
	}
}

func (s *notificationService) NotifyOfferCreated(venue *models.Venue, offer *models.FlashOffer) {
	if s.provider == nil || !s.cfg.Enabled {
		return
	}

	// Fire-and-forget: runs on its own context so a slow provider cannot
	// hold up or fail the creation path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()

		topic := fmt.Sprintf(s.cfg.NearbyTopicTemplate, venue.ID.Hex())
		if offer.TargetFavoritesOnly {
			topic = fmt.Sprintf("venue_%s_favorites", venue.ID.Hex())
		}

		request := &push.NotificationRequest{
			Title: venue.Name,
			Body:  offer.Title,
			Data: map[string]string{
				"offer_id":   offer.ID.Hex(),
				"venue_id":   venue.ID.Hex(),
				"start_time": offer.StartTime.Format(time.RFC3339),
				"end_time":   offer.EndTime.Format(time.RFC3339),
			},
		}

		if _, err := s.provider.SendToTopic(ctx, topic, request); err != nil {
			s.logger.WithError(err).
				WithOfferID(offer.ID).
				WithVenueID(venue.ID).
				Warn("offer notification dispatch failed")
		}
	}()
}
