// Package mongodb implements the ladder repositories on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/ladder/internal/domain/errs"
)

const (
	// DefaultPaginationLimit is the page size used when none is given.
	DefaultPaginationLimit = 50

	// MaxPaginationLimit caps any single page query.
	MaxPaginationLimit = 100
)

// HandleMongoError maps a MongoDB error to a domain error:
//   - nil if err == nil
//   - errs.ErrNotFound if no document matched
//   - errs.ErrAlreadyExists on a unique index violation
//   - a wrapped error otherwise
func HandleMongoError(err error, resourceType string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}

	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrAlreadyExists
	}

	return fmt.Errorf("failed to operate on %s: %w", resourceType, err)
}

// FindWithPagination returns find options with paging and sorting.
// sortOrder is 1 for ascending and -1 for descending.
func FindWithPagination(offset, limit int, sortField string, sortOrder int) *options.FindOptionsBuilder {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: sortOrder}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
}

// CountFilter counts documents matching filter.
func CountFilter(ctx context.Context, coll *mongo.Collection, filter bson.M) (int, error) {
	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DefaultLimitWithMax applies a default when limit <= 0 and caps it at maxLimit.
func DefaultLimitWithMax(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
