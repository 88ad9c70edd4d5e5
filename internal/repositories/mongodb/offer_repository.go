package mongodb

import (
	"context"
	"fmt"
	"time"

	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const offerCacheTTL = 30 * time.Second

// CacheService is the small cache surface the repositories use.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type offerRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewOfferRepository(db *mongo.Database, cache CacheService) interfaces.OfferRepository {
	return &offerRepository{
		collection: db.Collection("flash_offers"),
		cache:      cache,
	}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.FlashOffer) error {
	offer.ID = primitive.NewObjectID()
	offer.ClaimedCount = 0
	offer.Status = models.OfferStatusScheduled
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt

	_, err := r.collection.InsertOne(ctx, offer)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error) {
	if offer := r.getOfferFromCache(ctx, id.Hex()); offer != nil {
		return offer, nil
	}

	var offer models.FlashOffer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	r.cacheOffer(ctx, &offer)
	return &offer, nil
}

func (r *offerRepository) ListByVenue(ctx context.Context, venueID primitive.ObjectID, params *utils.PaginationParams) ([]*models.FlashOffer, int64, error) {
	filter := bson.M{"venue_id": venueID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find offers: %w", err)
	}
	defer cursor.Close(ctx)

	var offers []*models.FlashOffer
	for cursor.Next(ctx) {
		var offer models.FlashOffer
		if err := cursor.Decode(&offer); err != nil {
			return nil, 0, fmt.Errorf("failed to decode offer: %w", err)
		}
		offers = append(offers, &offer)
	}

	return offers, total, nil
}

// ReserveClaimSlot is the capacity-critical guarded increment. The filter
// re-checks the window, the terminal flags and claimed_count < max_claims
// in the same conditional update that performs the $inc, so no two
// successful reservations can push claimed_count past max_claims.
func (r *offerRepository) ReserveClaimSlot(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error) {
	filter := bson.M{
		"_id":        id,
		"status":     bson.M{"$nin": []models.OfferStatus{models.OfferStatusCancelled, models.OfferStatusExpired}},
		"start_time": bson.M{"$lte": now},
		"end_time":   bson.M{"$gt": now},
		"$expr":      bson.M{"$lt": []interface{}{"$claimed_count", "$max_claims"}},
	}
	update := bson.M{
		"$inc": bson.M{"claimed_count": 1},
		"$set": bson.M{"updated_at": now},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var offer models.FlashOffer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&offer)
	if err == nil {
		r.invalidateOfferCache(ctx, id.Hex())
		return &offer, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to reserve claim slot: %w", err)
	}

	// Guard failed: re-read once, bypassing the cache, to report the
	// precise reason.
	current, getErr := r.fetchOffer(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	status := models.DeriveStatus(current, now)
	if status == models.OfferStatusFull {
		return nil, models.ErrOfferFull
	}
	return nil, &models.OfferNotActiveError{Status: status}
}

func (r *offerRepository) ReleaseClaimSlot(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error) {
	filter := bson.M{
		"_id":           id,
		"claimed_count": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"claimed_count": -1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var offer models.FlashOffer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to release claim slot: %w", err)
	}

	r.invalidateOfferCache(ctx, id.Hex())
	return &offer, nil
}

func (r *offerRepository) Cancel(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error) {
	filter := bson.M{
		"_id":      id,
		"status":   bson.M{"$nin": []models.OfferStatus{models.OfferStatusCancelled, models.OfferStatusExpired}},
		"end_time": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.OfferStatusCancelled,
			"updated_at": now,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var offer models.FlashOffer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&offer)
	if err == nil {
		r.invalidateOfferCache(ctx, id.Hex())
		return &offer, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}

	current, getErr := r.fetchOffer(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if models.DeriveStatus(current, now).IsTerminal() {
		return nil, models.ErrOfferTerminal
	}
	return nil, fmt.Errorf("failed to cancel offer %s", id.Hex())
}

func (r *offerRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":   bson.M{"$nin": []models.OfferStatus{models.OfferStatusCancelled, models.OfferStatusExpired}},
		"end_time": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.OfferStatusExpired,
			"updated_at": now,
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired offers: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *offerRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views_count": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

func (r *offerRepository) IncrementRedemptions(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"redemptions_count": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment redemptions: %w", err)
	}
	return nil
}

func (r *offerRepository) fetchOffer(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error) {
	var offer models.FlashOffer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

// Cache helpers. Cached snapshots serve reads only; every capacity decision
// goes through a guarded update against the collection.
func (r *offerRepository) cacheOffer(ctx context.Context, offer *models.FlashOffer) {
	if r.cache != nil {
		r.cache.Set(ctx, "offer:"+offer.ID.Hex(), offer, offerCacheTTL)
	}
}

func (r *offerRepository) getOfferFromCache(ctx context.Context, offerID string) *models.FlashOffer {
	if r.cache == nil {
		return nil
	}

	var offer models.FlashOffer
	if err := r.cache.Get(ctx, "offer:"+offerID, &offer); err != nil {
		return nil
	}
	return &offer
}

func (r *offerRepository) invalidateOfferCache(ctx context.Context, offerID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, "offer:"+offerID)
	}
}
