package database

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// FindPage builds find options for a listing page sorted newest first.
// A negative limit returns every match.
func FindPage(limit, offset int, sortField string) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}})
	switch {
	case limit < 0:
		return opts
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return opts.SetLimit(int64(limit)).SetSkip(int64(offset))
}

// ContainsFold matches documents whose field contains s, ignoring case.
func ContainsFold(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// WithTimeout bounds a single repository call.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
