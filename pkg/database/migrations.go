package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
}

func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up() error {
	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			if err := migration.Up(m.db); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}
			if err := m.updateVersion(migration.Version); err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
		}
	}
	return nil
}

func (m *Migrator) getCurrentVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc struct {
		Version int `bson:"version"`
	}
	err := m.db.Collection("schema_migrations").
		FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})).
		Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return doc.Version, nil
}

func (m *Migrator) updateVersion(version int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := m.db.Collection("schema_migrations").InsertOne(ctx, bson.M{
		"version":    version,
		"applied_at": time.Now(),
	})
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "flash_offers indexes",
			Up: func(db *mongo.Database) error {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				_, err := db.Collection("flash_offers").Indexes().CreateMany(ctx, []mongo.IndexModel{
					{Keys: bson.D{{Key: "venue_id", Value: 1}, {Key: "created_at", Value: -1}}},
					{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_time", Value: 1}}},
				})
				return err
			},
		},
		{
			Version:     2,
			Description: "flash_offer_claims partial unique indexes",
			Up: func(db *mongo.Database) error {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				activeOnly := bson.M{"status": "active"}

				_, err := db.Collection("flash_offer_claims").Indexes().CreateMany(ctx, []mongo.IndexModel{
					{
						// One active claim per user per offer.
						Keys: bson.D{{Key: "offer_id", Value: 1}, {Key: "user_id", Value: 1}},
						Options: options.Index().
							SetName("uniq_active_claim_per_user").
							SetUnique(true).
							SetPartialFilterExpression(activeOnly),
					},
					{
						// One active token per venue; tokens may recur once
						// the holding claim settles.
						Keys: bson.D{{Key: "venue_id", Value: 1}, {Key: "token", Value: 1}},
						Options: options.Index().
							SetName("uniq_active_token_per_venue").
							SetUnique(true).
							SetPartialFilterExpression(activeOnly),
					},
					{
						// Sweep scan.
						Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
						Options: options.Index().SetName("claims_sweep"),
					},
				})
				return err
			},
		},
	}
}
