package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"flashoffers/internal/config"
	"flashoffers/internal/events"
	"flashoffers/internal/models"
	"flashoffers/internal/validators"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func offerServiceFixture(t *testing.T, tier models.SubscriptionTier) (OfferService, *fakeOfferRepo, *models.Venue) {
	t.Helper()

	offerRepo := newFakeOfferRepo()
	venue := &models.Venue{Name: "Harbor Grill", Tier: tier}
	venueRepo := newFakeVenueRepo(venue)
	log := testLogger(t)

	cfg := &config.OffersConfig{
		ClaimTTL: 30 * time.Minute,
		TierDailyLimits: map[models.SubscriptionTier]int{
			models.TierFree:    1,
			models.TierStarter: 5,
		},
	}
	rateLimiter := NewRateLimitService(newFakeCounterStore(), venueRepo, cfg, log)
	notifier := NewNotificationService(nil, nil, log)
	svc := NewOfferService(offerRepo, venueRepo, rateLimiter, notifier, events.NewBus(), log)
	return svc, offerRepo, venue
}

func validCreateRequest() *models.CreateOfferRequest {
	now := time.Now()
	return &models.CreateOfferRequest{
		Title:     "Half-price apps",
		StartTime: now.Add(time.Minute),
		EndTime:   now.Add(2 * time.Hour),
		MaxClaims: 20,
	}
}

func TestCreateOfferPersistsAndCharges(t *testing.T) {
	svc, offerRepo, venue := offerServiceFixture(t, models.TierStarter)

	offer, err := svc.CreateOffer(context.Background(), venue.ID, validCreateRequest())
	if err != nil {
		t.Fatalf("CreateOffer returned error: %v", err)
	}
	if offer.ID.IsZero() {
		t.Error("offer ID not assigned")
	}
	if offerRepo.snapshot(offer.ID) == nil {
		t.Error("offer not persisted")
	}

	status, err := svc.GetRateLimitStatus(context.Background(), venue.ID)
	if err != nil {
		t.Fatalf("rate limit status failed: %v", err)
	}
	if status.Count != 1 {
		t.Errorf("expected one quota slot consumed, count %d", status.Count)
	}
}

func TestCreateOfferRejectsInvalidRequests(t *testing.T) {
	svc, _, venue := offerServiceFixture(t, models.TierStarter)
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.CreateOfferRequest)
	}{
		{"missing title", func(r *models.CreateOfferRequest) { r.Title = "" }},
		{"zero capacity", func(r *models.CreateOfferRequest) { r.MaxClaims = 0 }},
		{"inverted window", func(r *models.CreateOfferRequest) {
			r.StartTime = now.Add(2 * time.Hour)
			r.EndTime = now.Add(time.Hour)
		}},
		{"window already over", func(r *models.CreateOfferRequest) {
			r.StartTime = now.Add(-2 * time.Hour)
			r.EndTime = now.Add(-time.Hour)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.CreateOffer(context.Background(), venue.ID, req)
			var verrs validators.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("expected ValidationErrors, got %v", err)
			}
		})
	}
}

func TestCreateOfferOverQuota(t *testing.T) {
	svc, _, venue := offerServiceFixture(t, models.TierFree)

	if _, err := svc.CreateOffer(context.Background(), venue.ID, validCreateRequest()); err != nil {
		t.Fatalf("first offer failed: %v", err)
	}

	_, err := svc.CreateOffer(context.Background(), venue.ID, validCreateRequest())
	var rateErr *models.RateLimitExceededError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
}

func TestCreateOfferUnknownVenue(t *testing.T) {
	svc, _, _ := offerServiceFixture(t, models.TierFree)

	if _, err := svc.CreateOffer(context.Background(), primitive.NewObjectID(), validCreateRequest()); !errors.Is(err, models.ErrVenueNotFound) {
		t.Errorf("expected ErrVenueNotFound, got %v", err)
	}
}

func TestCancelOffer(t *testing.T) {
	svc, offerRepo, venue := offerServiceFixture(t, models.TierStarter)

	offer, err := svc.CreateOffer(context.Background(), venue.ID, validCreateRequest())
	if err != nil {
		t.Fatalf("CreateOffer returned error: %v", err)
	}

	if err := svc.CancelOffer(context.Background(), offer.ID); err != nil {
		t.Fatalf("CancelOffer returned error: %v", err)
	}
	if got := offerRepo.snapshot(offer.ID).Status; got != models.OfferStatusCancelled {
		t.Errorf("expected cancelled, got %q", got)
	}

	// Cancellation is final; a second attempt hits the terminal guard.
	if err := svc.CancelOffer(context.Background(), offer.ID); !errors.Is(err, models.ErrOfferTerminal) {
		t.Errorf("expected ErrOfferTerminal, got %v", err)
	}
}

func TestGetOfferDerivesStatus(t *testing.T) {
	svc, offerRepo, _ := offerServiceFixture(t, models.TierStarter)

	now := time.Now()
	stored := offerRepo.put(&models.FlashOffer{
		VenueID:      primitive.NewObjectID(),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		MaxClaims:    2,
		ClaimedCount: 2,
	})

	offer, err := svc.GetOffer(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("GetOffer returned error: %v", err)
	}
	if offer.Status != models.OfferStatusFull {
		t.Errorf("expected derived status full, got %s", offer.Status)
	}
	if got := offerRepo.snapshot(stored.ID).ViewsCount; got != 1 {
		t.Errorf("expected views bumped to 1, got %d", got)
	}
}

func TestListOffersFiltersOnDerivedStatus(t *testing.T) {
	svc, offerRepo, venue := offerServiceFixture(t, models.TierStarter)

	now := time.Now()
	offerRepo.put(&models.FlashOffer{
		VenueID:   venue.ID,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		MaxClaims: 3,
	})
	offerRepo.put(&models.FlashOffer{
		VenueID:   venue.ID,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		MaxClaims: 3,
	})

	active, _, err := svc.ListOffers(context.Background(), venue.ID, models.OfferStatusActive, nil)
	if err != nil {
		t.Fatalf("ListOffers returned error: %v", err)
	}
	if len(active) != 1 || active[0].Status != models.OfferStatusActive {
		t.Errorf("expected one active offer, got %d", len(active))
	}

	all, total, err := svc.ListOffers(context.Background(), venue.ID, "", nil)
	if err != nil {
		t.Fatalf("ListOffers returned error: %v", err)
	}
	if len(all) != 2 || total != 2 {
		t.Errorf("expected both offers without filter, got %d (total %d)", len(all), total)
	}
}
