package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClaimStatus string

const (
	ClaimStatusActive   ClaimStatus = "active"
	ClaimStatusRedeemed ClaimStatus = "redeemed"
	ClaimStatusExpired  ClaimStatus = "expired"
)

// FlashOfferClaim is a user's reservation of one slot of a flash offer.
// Transitions are one-way: active -> redeemed or active -> expired.
// Claims are created atomically with the offer's claimed_count increment
// and are never deleted.
type FlashOfferClaim struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OfferID primitive.ObjectID `json:"offer_id" bson:"offer_id"`
	// VenueID is denormalized from the offer so token uniqueness can be
	// scoped to a venue's active claims with a single partial index.
	VenueID primitive.ObjectID `json:"venue_id" bson:"venue_id"`
	UserID  primitive.ObjectID `json:"user_id" bson:"user_id"`

	// Token is a 6-digit zero-padded numeric string, unique among the
	// venue's active claims. Tokens may recur once a claim leaves active.
	Token  string      `json:"token" bson:"token"`
	Status ClaimStatus `json:"status" bson:"status"`

	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time           `json:"expires_at" bson:"expires_at"`
	RedeemedAt *time.Time          `json:"redeemed_at,omitempty" bson:"redeemed_at,omitempty"`
	RedeemedBy *primitive.ObjectID `json:"redeemed_by,omitempty" bson:"redeemed_by,omitempty"`
}

// IsExpired reports whether the claim is past its TTL or already swept.
func (c *FlashOfferClaim) IsExpired(now time.Time) bool {
	return c.Status == ClaimStatusExpired || !now.Before(c.ExpiresAt)
}

// RedeemRequest is the payload accepted by the redeem endpoint.
type RedeemRequest struct {
	ClaimID string `json:"claim_id" binding:"required"`
}

// ValidateTokenRequest is the payload accepted by the validate endpoint.
type ValidateTokenRequest struct {
	Token string `json:"token" binding:"required,len=6,numeric"`
}
