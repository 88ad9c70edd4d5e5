package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flashoffers/internal/config"
	"flashoffers/internal/events"
	"flashoffers/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testOffersConfig() *config.OffersConfig {
	return &config.OffersConfig{
		ClaimTTL:         30 * time.Minute,
		MaxTokenAttempts: 25,
		TierDailyLimits: map[models.SubscriptionTier]int{
			models.TierFree: 1,
		},
	}
}

func newClaimFixture(t *testing.T, maxClaims int) (ClaimService, *fakeOfferRepo, *fakeClaimRepo, *models.FlashOffer, *events.Bus) {
	t.Helper()

	offerRepo := newFakeOfferRepo()
	claimRepo := newFakeClaimRepo()
	bus := events.NewBus()

	now := time.Now()
	offer := offerRepo.put(&models.FlashOffer{
		VenueID:   primitive.NewObjectID(),
		Title:     "2-for-1 drafts",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		MaxClaims: maxClaims,
	})

	log := testLogger(t)
	tokenGen := NewTokenGenerator(claimRepo, 25, log)
	svc := NewClaimService(passthroughTx{}, offerRepo, claimRepo, tokenGen, bus, testOffersConfig(), log)
	return svc, offerRepo, claimRepo, offer, bus
}

func TestClaimIssuesTokenAndIncrementsCount(t *testing.T) {
	svc, offerRepo, _, offer, _ := newClaimFixture(t, 3)

	claim, err := svc.Claim(context.Background(), offer.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}

	if len(claim.Token) != 6 {
		t.Errorf("expected 6-digit token, got %q", claim.Token)
	}
	if claim.Status != models.ClaimStatusActive {
		t.Errorf("expected active claim, got %s", claim.Status)
	}
	if claim.VenueID != offer.VenueID {
		t.Errorf("claim venue %s does not match offer venue %s", claim.VenueID.Hex(), offer.VenueID.Hex())
	}

	if got := offerRepo.snapshot(offer.ID).ClaimedCount; got != 1 {
		t.Errorf("expected claimed_count 1, got %d", got)
	}
}

func TestClaimExpiryCappedAtOfferEnd(t *testing.T) {
	offerRepo := newFakeOfferRepo()
	claimRepo := newFakeClaimRepo()
	bus := events.NewBus()
	log := testLogger(t)

	// Offer ends in 10 minutes, well inside the 30 minute TTL.
	now := time.Now()
	offer := offerRepo.put(&models.FlashOffer{
		VenueID:   primitive.NewObjectID(),
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(10 * time.Minute),
		MaxClaims: 5,
	})

	svc := NewClaimService(passthroughTx{}, offerRepo, claimRepo,
		NewTokenGenerator(claimRepo, 25, log), bus, testOffersConfig(), log)

	claim, err := svc.Claim(context.Background(), offer.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}
	if claim.ExpiresAt.After(offer.EndTime) {
		t.Errorf("claim expires at %v, after offer end %v", claim.ExpiresAt, offer.EndTime)
	}
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
	const maxClaims = 3
	const contenders = 8

	svc, offerRepo, _, offer, _ := newClaimFixture(t, maxClaims)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.Claim(context.Background(), offer.ID, primitive.NewObjectID())
		}(i)
	}
	wg.Wait()

	var won, full int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, models.ErrOfferFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if won != maxClaims {
		t.Errorf("expected exactly %d successful claims, got %d", maxClaims, won)
	}
	if full != contenders-maxClaims {
		t.Errorf("expected %d ErrOfferFull, got %d", contenders-maxClaims, full)
	}
	if got := offerRepo.snapshot(offer.ID).ClaimedCount; got != maxClaims {
		t.Errorf("claimed_count %d exceeds capacity %d", got, maxClaims)
	}
}

func TestClaimRejectsDuplicateUser(t *testing.T) {
	svc, _, _, offer, _ := newClaimFixture(t, 3)
	userID := primitive.NewObjectID()

	if _, err := svc.Claim(context.Background(), offer.ID, userID); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := svc.Claim(context.Background(), offer.ID, userID); !errors.Is(err, models.ErrDuplicateClaim) {
		t.Errorf("expected ErrDuplicateClaim, got %v", err)
	}
}

func TestClaimOutsideWindow(t *testing.T) {
	offerRepo := newFakeOfferRepo()
	claimRepo := newFakeClaimRepo()
	bus := events.NewBus()
	log := testLogger(t)

	now := time.Now()
	scheduled := offerRepo.put(&models.FlashOffer{
		VenueID:   primitive.NewObjectID(),
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		MaxClaims: 3,
	})
	ended := offerRepo.put(&models.FlashOffer{
		VenueID:   primitive.NewObjectID(),
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
		MaxClaims: 3,
	})

	svc := NewClaimService(passthroughTx{}, offerRepo, claimRepo,
		NewTokenGenerator(claimRepo, 25, log), bus, testOffersConfig(), log)

	for name, offerID := range map[string]primitive.ObjectID{
		"scheduled": scheduled.ID,
		"ended":     ended.ID,
	} {
		if _, err := svc.Claim(context.Background(), offerID, primitive.NewObjectID()); !errors.Is(err, models.ErrOfferNotActive) {
			t.Errorf("%s offer: expected ErrOfferNotActive, got %v", name, err)
		}
	}
}

func TestClaimPublishesFullTransition(t *testing.T) {
	svc, _, _, offer, bus := newClaimFixture(t, 1)

	ch, cancel := bus.Subscribe()
	defer cancel()

	if _, err := svc.Claim(context.Background(), offer.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}

	var sawClaimed, sawFull bool
	timeout := time.After(time.Second)
	for !(sawClaimed && sawFull) {
		select {
		case event := <-ch:
			switch event.Type {
			case events.EventOfferClaimed:
				sawClaimed = true
			case events.EventOfferStatusChanged:
				if event.Data["status"] == models.OfferStatusFull {
					sawFull = true
				}
			}
		case <-timeout:
			t.Fatalf("missing events: claimed=%v full=%v", sawClaimed, sawFull)
		}
	}
}
