// Package mongodb provides MongoDB infrastructure components including index management.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names as constants for consistency.
const (
	CollectionTournaments = "tournaments"
	CollectionChallenges  = "challenges"
)

// IndexDefinition describes a MongoDB index to be created.
type IndexDefinition struct {
	Collection string
	Name       string
	Keys       bson.D
	Unique     bool
}

func (d IndexDefinition) model() mongo.IndexModel {
	opts := options.Index().SetName(d.Name)
	if d.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: d.Keys, Options: opts}
}

// CreateAllIndexes creates all necessary indexes for the application.
// This function is idempotent - calling it multiple times is safe.
func CreateAllIndexes(ctx context.Context, db *mongo.Database) error {
	return createIndexes(ctx, db, GetAllIndexDefinitions())
}

// GetAllIndexDefinitions returns all index definitions for all collections.
func GetAllIndexDefinitions() []IndexDefinition {
	var indexes []IndexDefinition

	indexes = append(indexes, GetTournamentIndexes()...)
	indexes = append(indexes, GetChallengeIndexes()...)

	return indexes
}

// GetTournamentIndexes returns index definitions for the tournaments collection.
func GetTournamentIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			Collection: CollectionTournaments,
			Name:       "idx_tournaments_id_unique",
			Keys:       bson.D{{Key: "tournament_id", Value: 1}},
			Unique:     true,
		},
		{
			// One name per workspace, compared case-insensitively through name_key
			Collection: CollectionTournaments,
			Name:       "idx_tournaments_workspace_name_unique",
			Keys:       bson.D{{Key: "workspace_id", Value: 1}, {Key: "name_key", Value: 1}},
			Unique:     true,
		},
		{
			Collection: CollectionTournaments,
			Name:       "idx_tournaments_workspace_time",
			Keys:       bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
}

// GetChallengeIndexes returns index definitions for the challenges collection.
func GetChallengeIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			Collection: CollectionChallenges,
			Name:       "idx_challenges_id_unique",
			Keys:       bson.D{{Key: "challenge_id", Value: 1}},
			Unique:     true,
		},
		{
			Collection: CollectionChallenges,
			Name:       "idx_challenges_tournament_name_unique",
			Keys:       bson.D{{Key: "tournament_id", Value: 1}, {Key: "name_key", Value: 1}},
			Unique:     true,
		},
		{
			// Page queries
			Collection: CollectionChallenges,
			Name:       "idx_challenges_tournament_time",
			Keys:       bson.D{{Key: "tournament_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
}

// EnsureIndexes is an alias for CreateAllIndexes for semantic clarity.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return CreateAllIndexes(ctx, db)
}

// CreateCollectionIndexes creates indexes for a specific collection only.
func CreateCollectionIndexes(ctx context.Context, db *mongo.Database, collectionName string) error {
	var indexes []IndexDefinition

	switch collectionName {
	case CollectionTournaments:
		indexes = GetTournamentIndexes()
	case CollectionChallenges:
		indexes = GetChallengeIndexes()
	default:
		return fmt.Errorf("unknown collection: %s", collectionName)
	}

	return createIndexes(ctx, db, indexes)
}

func createIndexes(ctx context.Context, db *mongo.Database, indexes []IndexDefinition) error {
	for _, idx := range indexes {
		_, err := db.Collection(idx.Collection).Indexes().CreateOne(ctx, idx.model())
		if err != nil {
			return fmt.Errorf("failed to create index %s on collection %s: %w", idx.Name, idx.Collection, err)
		}
	}
	return nil
}
