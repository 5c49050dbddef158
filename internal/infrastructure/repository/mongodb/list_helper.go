package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// listDocuments runs a find and converts every document with decoder.
// Documents that fail to decode are skipped. The result is never nil.
func listDocuments[T any, R any](
	ctx context.Context,
	collection *mongo.Collection,
	filter bson.M,
	opts *options.FindOptionsBuilder,
	decoder func(*T) R,
	collectionName string,
) ([]R, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, HandleMongoError(err, collectionName)
	}
	defer cursor.Close(ctx)

	results := make([]R, 0)
	for cursor.Next(ctx) {
		var doc T
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			continue
		}
		results = append(results, decoder(&doc))
	}

	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return results, nil
}
