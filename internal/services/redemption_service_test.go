package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flashoffers/internal/events"
	"flashoffers/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRedemptionFixture(t *testing.T) (RedemptionService, *fakeOfferRepo, *fakeClaimRepo, *models.FlashOffer) {
	t.Helper()

	offerRepo := newFakeOfferRepo()
	claimRepo := newFakeClaimRepo()

	now := time.Now()
	offer := offerRepo.put(&models.FlashOffer{
		VenueID:      primitive.NewObjectID(),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		MaxClaims:    5,
		ClaimedCount: 1,
	})

	svc := NewRedemptionService(claimRepo, offerRepo, events.NewBus(), testLogger(t))
	return svc, offerRepo, claimRepo, offer
}

func activeClaim(repo *fakeClaimRepo, offer *models.FlashOffer, expiresAt time.Time) *models.FlashOfferClaim {
	return repo.put(&models.FlashOfferClaim{
		OfferID:   offer.ID,
		VenueID:   offer.VenueID,
		UserID:    primitive.NewObjectID(),
		Token:     "042617",
		Status:    models.ClaimStatusActive,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	})
}

func TestValidateOutcomes(t *testing.T) {
	svc, _, claimRepo, offer := newRedemptionFixture(t)

	live := activeClaim(claimRepo, offer, time.Now().Add(20*time.Minute))

	redeemedAt := time.Now()
	redeemer := primitive.NewObjectID()
	claimRepo.put(&models.FlashOfferClaim{
		OfferID:    offer.ID,
		VenueID:    offer.VenueID,
		UserID:     primitive.NewObjectID(),
		Token:      "515151",
		Status:     models.ClaimStatusRedeemed,
		ExpiresAt:  time.Now().Add(20 * time.Minute),
		RedeemedAt: &redeemedAt,
		RedeemedBy: &redeemer,
	})
	claimRepo.put(&models.FlashOfferClaim{
		OfferID:   offer.ID,
		VenueID:   offer.VenueID,
		UserID:    primitive.NewObjectID(),
		Token:     "626262",
		Status:    models.ClaimStatusActive,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid token", live.Token, nil},
		{"already redeemed", "515151", models.ErrAlreadyRedeemed},
		{"stale active past ttl", "626262", models.ErrTokenExpired},
		{"unknown token", "999999", models.ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim, err := svc.Validate(context.Background(), offer.VenueID, tt.token)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if claim.Token != tt.token {
					t.Errorf("expected claim for token %s, got %s", tt.token, claim.Token)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateScopedToVenue(t *testing.T) {
	svc, _, claimRepo, offer := newRedemptionFixture(t)
	activeClaim(claimRepo, offer, time.Now().Add(20*time.Minute))

	otherVenue := primitive.NewObjectID()
	if _, err := svc.Validate(context.Background(), otherVenue, "042617"); !errors.Is(err, models.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound for foreign venue, got %v", err)
	}
}

func TestRedeemExactlyOnce(t *testing.T) {
	svc, offerRepo, claimRepo, offer := newRedemptionFixture(t)
	claim := activeClaim(claimRepo, offer, time.Now().Add(20*time.Minute))

	redeemer := primitive.NewObjectID()
	redeemed, err := svc.Redeem(context.Background(), claim.ID, redeemer)
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if redeemed.Status != models.ClaimStatusRedeemed {
		t.Errorf("expected redeemed status, got %s", redeemed.Status)
	}
	if redeemed.RedeemedBy == nil || *redeemed.RedeemedBy != redeemer {
		t.Errorf("redeemed_by not recorded")
	}
	if got := offerRepo.snapshot(offer.ID).RedemptionsCount; got != 1 {
		t.Errorf("expected redemptions counter 1, got %d", got)
	}

	// Second attempt loses to the first and reports what won.
	_, err = svc.Redeem(context.Background(), claim.ID, primitive.NewObjectID())
	var raceErr *models.RaceConditionError
	if !errors.As(err, &raceErr) {
		t.Fatalf("expected RaceConditionError, got %v", err)
	}
	if raceErr.ClaimStatus != models.ClaimStatusRedeemed {
		t.Errorf("expected race against redeemed, got %s", raceErr.ClaimStatus)
	}
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	svc, _, claimRepo, offer := newRedemptionFixture(t)
	claim := activeClaim(claimRepo, offer, time.Now().Add(20*time.Minute))

	const contenders = 4
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.Redeem(context.Background(), claim.ID, primitive.NewObjectID())
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var raceErr *models.RaceConditionError
		if !errors.As(err, &raceErr) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestRedeemExpiredBeforeSweep(t *testing.T) {
	svc, _, claimRepo, offer := newRedemptionFixture(t)

	// Active in the store, but its TTL already elapsed.
	claim := activeClaim(claimRepo, offer, time.Now().Add(-time.Minute))

	if _, err := svc.Redeem(context.Background(), claim.ID, primitive.NewObjectID()); !errors.Is(err, models.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedeemMissingClaim(t *testing.T) {
	svc, _, _, _ := newRedemptionFixture(t)

	if _, err := svc.Redeem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID()); !errors.Is(err, models.ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound, got %v", err)
	}
}
