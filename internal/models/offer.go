package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OfferStatus string

const (
	OfferStatusScheduled OfferStatus = "scheduled"
	OfferStatusActive    OfferStatus = "active"
	OfferStatusFull      OfferStatus = "full"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// FlashOffer is a venue-issued, time-boxed, capacity-limited promotion.
// Offers are never deleted; they only reach a terminal status.
type FlashOffer struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VenueID     primitive.ObjectID `json:"venue_id" bson:"venue_id" validate:"required"`
	Title       string             `json:"title" bson:"title" validate:"required"`
	Description string             `json:"description" bson:"description"`
	ValueCap    string             `json:"value_cap,omitempty" bson:"value_cap,omitempty"`

	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required"`

	MaxClaims    int `json:"max_claims" bson:"max_claims" validate:"required,gt=0"`
	ClaimedCount int `json:"claimed_count" bson:"claimed_count"`

	RadiusMiles         float64 `json:"radius_miles" bson:"radius_miles"`
	TargetFavoritesOnly bool    `json:"target_favorites_only" bson:"target_favorites_only"`

	// Cancelled and Expired are the persisted terminal flags; every other
	// status is derived from time and counters, see DeriveStatus.
	Status OfferStatus `json:"status" bson:"status"`

	// Display counters only, never consulted for capacity decisions.
	ViewsCount       int `json:"views_count" bson:"views_count"`
	RedemptionsCount int `json:"redemptions_count" bson:"redemptions_count"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DeriveStatus computes the offer status as a pure function of time and
// counters. Persisted terminal flags win; otherwise the window and the claim
// counter decide. Callers must not use the result for capacity decisions —
// those re-check claimed_count inside a guarded update.
func DeriveStatus(offer *FlashOffer, now time.Time) OfferStatus {
	switch offer.Status {
	case OfferStatusCancelled:
		return OfferStatusCancelled
	case OfferStatusExpired:
		return OfferStatusExpired
	}

	if !now.Before(offer.EndTime) {
		return OfferStatusExpired
	}
	if now.Before(offer.StartTime) {
		return OfferStatusScheduled
	}
	if offer.ClaimedCount >= offer.MaxClaims {
		return OfferStatusFull
	}
	return OfferStatusActive
}

// IsTerminal reports whether the status permits no further transitions.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusExpired || s == OfferStatusCancelled
}

// RemainingClaims returns the number of free claim slots.
func (o *FlashOffer) RemainingClaims() int {
	remaining := o.MaxClaims - o.ClaimedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreateOfferRequest is the payload accepted by the offer creation endpoint.
type CreateOfferRequest struct {
	Title               string    `json:"title" binding:"required" validate:"required,max=120"`
	Description         string    `json:"description" validate:"max=1000"`
	ValueCap            string    `json:"value_cap" validate:"max=120"`
	StartTime           time.Time `json:"start_time" binding:"required" validate:"required"`
	EndTime             time.Time `json:"end_time" binding:"required" validate:"required"`
	MaxClaims           int       `json:"max_claims" binding:"required,gt=0" validate:"required,gt=0"`
	RadiusMiles         float64   `json:"radius_miles"`
	TargetFavoritesOnly bool      `json:"target_favorites_only"`
}
