package mongodb

import (
	"context"
	"errors"

	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// translateErr maps driver errors onto the repository sentinels.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicate
	}
	return err
}

// findMany runs a query and decodes every document, returning an empty slice instead of nil.
func findMany[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

// pageOptions converts 1-based page/limit into find options, clamping bad input.
func pageOptions(page, limit int) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
}
