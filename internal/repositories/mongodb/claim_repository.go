package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	claimUserIndexName  = "uniq_active_claim_per_user"
	claimTokenIndexName = "uniq_active_token_per_venue"
)

type claimRepository struct {
	collection *mongo.Collection
}

func NewClaimRepository(db *mongo.Database) interfaces.ClaimRepository {
	return &claimRepository{
		collection: db.Collection("flash_offer_claims"),
	}
}

func (r *claimRepository) Create(ctx context.Context, claim *models.FlashOfferClaim) error {
	claim.ID = primitive.NewObjectID()
	claim.Status = models.ClaimStatusActive
	claim.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, claim)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The partial unique indexes tell us which invariant tripped.
			if strings.Contains(err.Error(), claimTokenIndexName) {
				return models.ErrTokenCollision
			}
			return models.ErrDuplicateClaim
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOfferClaim, error) {
	var claim models.FlashOfferClaim
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&claim)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) GetByVenueToken(ctx context.Context, venueID primitive.ObjectID, token string) (*models.FlashOfferClaim, error) {
	filter := bson.M{"venue_id": venueID, "token": token}

	// Active claim wins when a settled claim once held the same token;
	// among settled claims the most recent one is reported.
	opts := options.FindOne().SetSort(bson.D{
		{Key: "status", Value: 1},
		{Key: "created_at", Value: -1},
	})

	var claim models.FlashOfferClaim
	err := r.collection.FindOne(ctx, filter, opts).Decode(&claim)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get claim by token: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) GetActiveByOfferUser(ctx context.Context, offerID, userID primitive.ObjectID) (*models.FlashOfferClaim, error) {
	filter := bson.M{
		"offer_id": offerID,
		"user_id":  userID,
		"status":   models.ClaimStatusActive,
	}

	var claim models.FlashOfferClaim
	err := r.collection.FindOne(ctx, filter).Decode(&claim)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get active claim: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) ActiveTokenExists(ctx context.Context, venueID primitive.ObjectID, token string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"venue_id": venueID,
		"token":    token,
		"status":   models.ClaimStatusActive,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check token existence: %w", err)
	}
	return count > 0, nil
}

func (r *claimRepository) CountActiveByVenue(ctx context.Context, venueID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"venue_id": venueID,
		"status":   models.ClaimStatusActive,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active claims: %w", err)
	}
	return count, nil
}

// MarkRedeemed is the exactly-once transition. Status and TTL are re-checked
// in the same conditional update that mutates the row, so of any number of
// concurrent redeems exactly one observes the guard holding.
func (r *claimRepository) MarkRedeemed(ctx context.Context, id, redeemerID primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error) {
	filter := bson.M{
		"_id":        id,
		"status":     models.ClaimStatusActive,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":      models.ClaimStatusRedeemed,
			"redeemed_at": now,
			"redeemed_by": redeemerID,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var claim models.FlashOfferClaim
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&claim)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to redeem claim: %w", err)
	}
	return &claim, nil
}

// MarkExpired uses the same guarded-transition discipline as MarkRedeemed,
// so the sweep cannot race a concurrent redeem.
func (r *claimRepository) MarkExpired(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error) {
	filter := bson.M{
		"_id":    id,
		"status": models.ClaimStatusActive,
	}
	update := bson.M{
		"$set": bson.M{"status": models.ClaimStatusExpired},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var claim models.FlashOfferClaim
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&claim)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to expire claim: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) ListStaleActive(ctx context.Context, now time.Time, limit int64) ([]*models.FlashOfferClaim, error) {
	filter := bson.M{
		"status":     models.ClaimStatusActive,
		"expires_at": bson.M{"$lte": now},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale claims: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []*models.FlashOfferClaim
	for cursor.Next(ctx) {
		var claim models.FlashOfferClaim
		if err := cursor.Decode(&claim); err != nil {
			return nil, fmt.Errorf("failed to decode claim: %w", err)
		}
		claims = append(claims, &claim)
	}
	return claims, nil
}

func (r *claimRepository) ListByOffer(ctx context.Context, offerID primitive.ObjectID) ([]*models.FlashOfferClaim, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"offer_id": offerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find claims: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []*models.FlashOfferClaim
	for cursor.Next(ctx) {
		var claim models.FlashOfferClaim
		if err := cursor.Decode(&claim); err != nil {
			return nil, fmt.Errorf("failed to decode claim: %w", err)
		}
		claims = append(claims, &claim)
	}
	return claims, nil
}
