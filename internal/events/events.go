package events

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventOfferCreated       EventType = "offer.created"
	EventOfferCancelled     EventType = "offer.cancelled"
	EventOfferClaimed       EventType = "offer.claimed"
	EventOfferStatusChanged EventType = "offer.status_changed"
	EventClaimRedeemed      EventType = "claim.redeemed"
	EventClaimExpired       EventType = "claim.expired"
)

// Event is a domain event emitted after a state change has committed.
// The feed is a one-way observer channel: nothing on the claim/redemption
// path depends on delivery.
type Event struct {
	Type      EventType              `json:"type"`
	OfferID   primitive.ObjectID     `json:"offer_id,omitempty"`
	VenueID   primitive.ObjectID     `json:"venue_id,omitempty"`
	ClaimID   primitive.ObjectID     `json:"claim_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
