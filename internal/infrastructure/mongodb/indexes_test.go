package mongodb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/lllypuk/ladder/internal/infrastructure/mongodb"
	"github.com/lllypuk/ladder/tests/testutil"
)

func TestGetAllIndexDefinitions(t *testing.T) {
	t.Parallel()

	all := mongodb.GetAllIndexDefinitions()
	assert.Len(t, all, len(mongodb.GetTournamentIndexes())+len(mongodb.GetChallengeIndexes()))

	names := make(map[string]bool)
	for _, idx := range all {
		assert.NotEmpty(t, idx.Name)
		assert.False(t, names[idx.Name], "duplicate index name %s", idx.Name)
		names[idx.Name] = true
	}
}

func TestGetTournamentIndexes(t *testing.T) {
	t.Parallel()

	idx := findIndexByName(mongodb.GetTournamentIndexes(), "idx_tournaments_workspace_name_unique")
	require.NotNil(t, idx)
	assert.True(t, idx.Unique)
	assert.Equal(t, mongodb.CollectionTournaments, idx.Collection)
}

func TestGetChallengeIndexes(t *testing.T) {
	t.Parallel()

	idx := findIndexByName(mongodb.GetChallengeIndexes(), "idx_challenges_tournament_name_unique")
	require.NotNil(t, idx)
	assert.True(t, idx.Unique)

	idx = findIndexByName(mongodb.GetChallengeIndexes(), "idx_challenges_tournament_time")
	require.NotNil(t, idx)
	assert.False(t, idx.Unique)
}

func TestCreateCollectionIndexes_UnknownCollection(t *testing.T) {
	t.Parallel()

	err := mongodb.CreateCollectionIndexes(context.Background(), nil, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection")
}

func TestCreateAllIndexes(t *testing.T) {
	t.Parallel()

	db := testutil.SetupTestMongoDB(t)
	ctx := context.Background()

	require.NoError(t, mongodb.CreateAllIndexes(ctx, db))
	// idempotent
	require.NoError(t, mongodb.EnsureIndexes(ctx, db))

	for _, coll := range []string{mongodb.CollectionTournaments, mongodb.CollectionChallenges} {
		indexes := getCollectionIndexes(ctx, t, db, coll)
		assert.Len(t, indexes, 4, "collection %s: _id plus three", coll)
	}
}

func TestIndexesIntegration_UniqueConstraint(t *testing.T) {
	t.Parallel()

	db := testutil.SetupTestMongoDB(t)
	ctx := context.Background()
	require.NoError(t, mongodb.CreateCollectionIndexes(ctx, db, mongodb.CollectionTournaments))

	coll := db.Collection(mongodb.CollectionTournaments)
	_, err := coll.InsertOne(ctx, bson.M{"tournament_id": "t1", "workspace_id": "ws", "name_key": "cup"})
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, bson.M{"tournament_id": "t2", "workspace_id": "ws", "name_key": "cup"})
	require.Error(t, err)
	assert.True(t, mongo.IsDuplicateKeyError(err))

	_, err = coll.InsertOne(ctx, bson.M{"tournament_id": "t3", "workspace_id": "other", "name_key": "cup"})
	require.NoError(t, err)
}

func getCollectionIndexes(ctx context.Context, t *testing.T, db *mongo.Database, collName string) []bson.M {
	t.Helper()

	cursor, err := db.Collection(collName).Indexes().List(ctx)
	require.NoError(t, err)

	var indexes []bson.M
	require.NoError(t, cursor.All(ctx, &indexes))

	return indexes
}

func findIndexByName(indexes []mongodb.IndexDefinition, name string) *mongodb.IndexDefinition {
	for i := range indexes {
		if indexes[i].Name == name {
			return &indexes[i]
		}
	}
	return nil
}
