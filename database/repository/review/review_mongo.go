package reviewRepo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"localcity/database"
	"localcity/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoReviewRepo implements ReviewRepository using MongoDB.
type MongoReviewRepo struct {
	coll *mongo.Collection
}

func NewMongoReviewRepo() ReviewRepository {
	repo := &MongoReviewRepo{coll: database.Collection("reviews")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Error("failed to create review indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoReviewRepo) ensureIndexes() error {
	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "merchantId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "flagged", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoReviewRepo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rev models.Review
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("review %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch review with id %s: %w", id, err)
	}
	return &rev, nil
}

func (r *MongoReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int64, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.MerchantID != "" {
		query["merchantId"] = filter.MerchantID
	}
	if filter.Flagged != nil {
		query["flagged"] = *filter.Flagged
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	cursor, err := r.coll.Find(ctx, query, database.FindPage(filter.Limit, filter.Offset, "createdAt"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *MongoReviewRepo) SetStatus(ctx context.Context, id string, status models.ReviewStatus, by string, at time.Time) (*models.Review, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":      status,
		"flagged":     false,
		"moderatedBy": by,
		"moderatedAt": at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rev models.Review
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&rev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("review %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update review with id %s: %w", id, err)
	}
	return &rev, nil
}

func (r *MongoReviewRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("review %s: %w", id, database.ErrNotFound)
	}
	return nil
}

func (r *MongoReviewRepo) Summary(ctx context.Context, merchantID string) (models.RatingSummary, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"merchantId": merchantID, "status": models.ReviewApproved}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to aggregate reviews for merchant %s: %w", merchantID, err)
	}
	defer cursor.Close(ctx)

	var out []models.RatingSummary
	if err := cursor.All(ctx, &out); err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to decode review summary: %w", err)
	}
	if len(out) == 0 {
		return models.RatingSummary{}, nil
	}
	s := out[0]
	s.Average = math.Round(s.Average*10) / 10
	return s, nil
}
