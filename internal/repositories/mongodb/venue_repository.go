package mongodb

import (
	"context"
	"fmt"

	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type venueRepository struct {
	collection *mongo.Collection
}

func NewVenueRepository(db *mongo.Database) interfaces.VenueRepository {
	return &venueRepository{
		collection: db.Collection("venues"),
	}
}

func (r *venueRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Venue, error) {
	var venue models.Venue
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}
