package services

import (
	"context"
	"sync"
	"time"

	"flashoffers/internal/models"
	"flashoffers/internal/utils"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return log
}

// passthroughTx runs the callback directly. The fakes apply their mutations
// immediately, which matches the committed-transaction view the services
// observe.
type passthroughTx struct{}

func (passthroughTx) InTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}

// fakeOfferRepo mirrors the store's guarded conditional updates with a
// mutex, so concurrent service calls exercise the same admit-or-reject
// semantics as the real collection.
type fakeOfferRepo struct {
	mu     sync.Mutex
	offers map[primitive.ObjectID]*models.FlashOffer

	reserveCalls int
	releaseCalls int
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{offers: make(map[primitive.ObjectID]*models.FlashOffer)}
}

func (r *fakeOfferRepo) put(offer *models.FlashOffer) *models.FlashOffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer.ID.IsZero() {
		offer.ID = primitive.NewObjectID()
	}
	r.offers[offer.ID] = offer
	return offer
}

func (r *fakeOfferRepo) snapshot(id primitive.ObjectID) *models.FlashOffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer, ok := r.offers[id]; ok {
		copied := *offer
		return &copied
	}
	return nil
}

func (r *fakeOfferRepo) Create(ctx context.Context, offer *models.FlashOffer) error {
	offer.Status = models.OfferStatusScheduled
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt
	r.put(offer)
	return nil
}

func (r *fakeOfferRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error) {
	if offer := r.snapshot(id); offer != nil {
		return offer, nil
	}
	return nil, models.ErrOfferNotFound
}

func (r *fakeOfferRepo) ListByVenue(ctx context.Context, venueID primitive.ObjectID, params *utils.PaginationParams) ([]*models.FlashOffer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.FlashOffer
	for _, offer := range r.offers {
		if offer.VenueID == venueID {
			copied := *offer
			result = append(result, &copied)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeOfferRepo) ReserveClaimSlot(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserveCalls++

	offer, ok := r.offers[id]
	if !ok {
		return nil, models.ErrOfferNotFound
	}
	if offer.Status.IsTerminal() || now.Before(offer.StartTime) || !now.Before(offer.EndTime) {
		return nil, &models.OfferNotActiveError{Status: models.DeriveStatus(offer, now)}
	}
	if offer.ClaimedCount >= offer.MaxClaims {
		return nil, models.ErrOfferFull
	}
	offer.ClaimedCount++
	copied := *offer
	return &copied, nil
}

func (r *fakeOfferRepo) ReleaseClaimSlot(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseCalls++

	offer, ok := r.offers[id]
	if !ok {
		return nil, models.ErrOfferNotFound
	}
	if offer.ClaimedCount > 0 {
		offer.ClaimedCount--
	}
	copied := *offer
	return &copied, nil
}

func (r *fakeOfferRepo) Cancel(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.offers[id]
	if !ok {
		return nil, models.ErrOfferNotFound
	}
	if offer.Status.IsTerminal() {
		return nil, models.ErrOfferTerminal
	}
	offer.Status = models.OfferStatusCancelled
	offer.UpdatedAt = now
	copied := *offer
	return &copied, nil
}

func (r *fakeOfferRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, offer := range r.offers {
		if !offer.Status.IsTerminal() && !now.Before(offer.EndTime) {
			offer.Status = models.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeOfferRepo) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer, ok := r.offers[id]; ok {
		offer.ViewsCount++
	}
	return nil
}

func (r *fakeOfferRepo) IncrementRedemptions(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer, ok := r.offers[id]; ok {
		offer.RedemptionsCount++
	}
	return nil
}

// fakeClaimRepo enforces the same invariants as the partial unique indexes:
// one active claim per (offer, user) and one active token per venue.
type fakeClaimRepo struct {
	mu     sync.Mutex
	claims map[primitive.ObjectID]*models.FlashOfferClaim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[primitive.ObjectID]*models.FlashOfferClaim)}
}

func (r *fakeClaimRepo) put(claim *models.FlashOfferClaim) *models.FlashOfferClaim {
	r.mu.Lock()
	defer r.mu.Unlock()
	if claim.ID.IsZero() {
		claim.ID = primitive.NewObjectID()
	}
	r.claims[claim.ID] = claim
	return claim
}

func (r *fakeClaimRepo) Create(ctx context.Context, claim *models.FlashOfferClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.claims {
		if existing.Status != models.ClaimStatusActive {
			continue
		}
		if existing.VenueID == claim.VenueID && existing.Token == claim.Token {
			return models.ErrTokenCollision
		}
		if existing.OfferID == claim.OfferID && existing.UserID == claim.UserID {
			return models.ErrDuplicateClaim
		}
	}

	claim.ID = primitive.NewObjectID()
	claim.Status = models.ClaimStatusActive
	claim.CreatedAt = time.Now()
	r.claims[claim.ID] = claim
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if claim, ok := r.claims[id]; ok {
		copied := *claim
		return &copied, nil
	}
	return nil, models.ErrClaimNotFound
}

func (r *fakeClaimRepo) GetByVenueToken(ctx context.Context, venueID primitive.ObjectID, token string) (*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var settled *models.FlashOfferClaim
	for _, claim := range r.claims {
		if claim.VenueID != venueID || claim.Token != token {
			continue
		}
		if claim.Status == models.ClaimStatusActive {
			copied := *claim
			return &copied, nil
		}
		if settled == nil || claim.CreatedAt.After(settled.CreatedAt) {
			settled = claim
		}
	}
	if settled != nil {
		copied := *settled
		return &copied, nil
	}
	return nil, models.ErrTokenNotFound
}

func (r *fakeClaimRepo) GetActiveByOfferUser(ctx context.Context, offerID, userID primitive.ObjectID) (*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, claim := range r.claims {
		if claim.OfferID == offerID && claim.UserID == userID && claim.Status == models.ClaimStatusActive {
			copied := *claim
			return &copied, nil
		}
	}
	return nil, models.ErrClaimNotFound
}

func (r *fakeClaimRepo) ActiveTokenExists(ctx context.Context, venueID primitive.ObjectID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, claim := range r.claims {
		if claim.VenueID == venueID && claim.Token == token && claim.Status == models.ClaimStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeClaimRepo) CountActiveByVenue(ctx context.Context, venueID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, claim := range r.claims {
		if claim.VenueID == venueID && claim.Status == models.ClaimStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeClaimRepo) MarkRedeemed(ctx context.Context, id, redeemerID primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[id]
	if !ok || claim.Status != models.ClaimStatusActive || !now.Before(claim.ExpiresAt) {
		return nil, models.ErrClaimNotFound
	}
	claim.Status = models.ClaimStatusRedeemed
	claim.RedeemedAt = &now
	claim.RedeemedBy = &redeemerID
	copied := *claim
	return &copied, nil
}

func (r *fakeClaimRepo) MarkExpired(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[id]
	if !ok || claim.Status != models.ClaimStatusActive {
		return nil, models.ErrClaimNotFound
	}
	claim.Status = models.ClaimStatusExpired
	copied := *claim
	return &copied, nil
}

func (r *fakeClaimRepo) ListStaleActive(ctx context.Context, now time.Time, limit int64) ([]*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.FlashOfferClaim
	for _, claim := range r.claims {
		if claim.Status == models.ClaimStatusActive && !now.Before(claim.ExpiresAt) {
			copied := *claim
			result = append(result, &copied)
			if int64(len(result)) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *fakeClaimRepo) ListByOffer(ctx context.Context, offerID primitive.ObjectID) ([]*models.FlashOfferClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.FlashOfferClaim
	for _, claim := range r.claims {
		if claim.OfferID == offerID {
			copied := *claim
			result = append(result, &copied)
		}
	}
	return result, nil
}

type fakeVenueRepo struct {
	mu     sync.Mutex
	venues map[primitive.ObjectID]*models.Venue
}

func newFakeVenueRepo(venues ...*models.Venue) *fakeVenueRepo {
	repo := &fakeVenueRepo{venues: make(map[primitive.ObjectID]*models.Venue)}
	for _, venue := range venues {
		if venue.ID.IsZero() {
			venue.ID = primitive.NewObjectID()
		}
		repo.venues[venue.ID] = venue
	}
	return repo
}

func (r *fakeVenueRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if venue, ok := r.venues[id]; ok {
		copied := *venue
		return &copied, nil
	}
	return nil, models.ErrVenueNotFound
}

// fakeCounterStore reproduces the Lua script's check-and-increment under a
// mutex.
type fakeCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counters: make(map[string]int64)}
}

func (s *fakeCounterStore) GuardedIncrement(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.counters[key]
	if count >= limit {
		return count, false, nil
	}
	count++
	s.counters[key] = count
	return count, true, nil
}

func (s *fakeCounterStore) Decrement(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]--
	return s.counters[key], nil
}

func (s *fakeCounterStore) GetCounter(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}
