package interfaces

import (
	"context"
	"time"

	"flashoffers/internal/models"
	"flashoffers/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OfferRepository interface {
	// Basic operations
	Create(ctx context.Context, offer *models.FlashOffer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error)
	ListByVenue(ctx context.Context, venueID primitive.ObjectID, params *utils.PaginationParams) ([]*models.FlashOffer, int64, error)

	// ReserveClaimSlot atomically increments claimed_count only while
	// claimed_count < max_claims, the offer window contains now and the
	// offer is not terminalized. Returns the post-increment offer, or
	// a typed error describing why the guard failed.
	ReserveClaimSlot(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error)

	// ReleaseClaimSlot decrements claimed_count, guarded claimed_count > 0.
	// Used by the sweep when an active claim expires.
	ReleaseClaimSlot(ctx context.Context, id primitive.ObjectID) (*models.FlashOffer, error)

	// Cancel terminalizes the offer, guarded against the terminal states.
	Cancel(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.FlashOffer, error)

	// MarkExpired persists the expired flag on offers whose window has
	// closed. Query-efficiency only: DeriveStatus never trusts it.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	// Display counters, unguarded.
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	IncrementRedemptions(ctx context.Context, id primitive.ObjectID) error
}
