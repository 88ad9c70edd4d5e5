package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionTier string

const (
	TierFree      SubscriptionTier = "free"
	TierStarter   SubscriptionTier = "starter"
	TierPro       SubscriptionTier = "pro"
	TierUnlimited SubscriptionTier = "unlimited"
)

// Venue is the minimal venue surface this core needs: identity, timezone
// for the rate-limit day boundary and the subscription tier that resolves
// the daily offer-creation quota.
type Venue struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	Timezone       string             `json:"timezone" bson:"timezone"`
	Tier           SubscriptionTier   `json:"tier" bson:"tier"`
	FavoritesCount int                `json:"favorites_count" bson:"favorites_count"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// Location returns the venue's IANA timezone, falling back to UTC when the
// configured value is missing or unloadable.
func (v *Venue) Location() *time.Location {
	if v.Timezone != "" {
		if loc, err := time.LoadLocation(v.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// RateLimitStatus is the caller-facing view of a venue-day quota.
type RateLimitStatus struct {
	VenueID   primitive.ObjectID `json:"venue_id"`
	Count     int                `json:"count"`
	Limit     int                `json:"limit"`
	Remaining int                `json:"remaining"`
	Unlimited bool               `json:"unlimited"`
	ResetsAt  time.Time          `json:"resets_at"`
}
