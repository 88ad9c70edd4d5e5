package interfaces

import (
	"context"
	"time"

	"flashoffers/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClaimRepository interface {
	// Create inserts the claim row. The partial unique indexes on
	// (offer_id, user_id, status=active) and (venue_id, token,
	// status=active) turn races into duplicate-key errors, surfaced as
	// models.ErrDuplicateClaim / ErrTokenCollision by the implementation.
	Create(ctx context.Context, claim *models.FlashOfferClaim) error

	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOfferClaim, error)

	// GetByVenueToken looks a claim up by (venue_id, token), preferring an
	// active claim when an old settled claim reused the token.
	GetByVenueToken(ctx context.Context, venueID primitive.ObjectID, token string) (*models.FlashOfferClaim, error)

	// GetActiveByOfferUser returns the user's active claim on the offer,
	// or models.ErrClaimNotFound.
	GetActiveByOfferUser(ctx context.Context, offerID, userID primitive.ObjectID) (*models.FlashOfferClaim, error)

	// ActiveTokenExists reports whether the token is held by one of the
	// venue's active claims.
	ActiveTokenExists(ctx context.Context, venueID primitive.ObjectID, token string) (bool, error)

	// CountActiveByVenue sizes the venue's active-claim set, used by the
	// token generator's exhaustion guard.
	CountActiveByVenue(ctx context.Context, venueID primitive.ObjectID) (int64, error)

	// MarkRedeemed performs the exactly-once transition active -> redeemed,
	// guarded on status and TTL in a single conditional update. Returns the
	// updated claim, or models.ErrClaimNotFound when the guard failed.
	MarkRedeemed(ctx context.Context, id, redeemerID primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error)

	// MarkExpired transitions one stale active claim to expired, guarded on
	// status so it cannot race a concurrent redeem.
	MarkExpired(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOfferClaim, error)

	// ListStaleActive returns active claims whose expires_at has passed,
	// for the background sweep.
	ListStaleActive(ctx context.Context, now time.Time, limit int64) ([]*models.FlashOfferClaim, error)

	ListByOffer(ctx context.Context, offerID primitive.ObjectID) ([]*models.FlashOfferClaim, error)
}

// VenueRepository is the minimal venue lookup the core needs: tier and
// timezone resolution for rate limiting and notification targeting.
type VenueRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Venue, error)
}
