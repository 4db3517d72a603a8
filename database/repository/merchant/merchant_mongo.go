package merchantRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"localcity/database"
	"localcity/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoMerchantRepo implements MerchantRepository using MongoDB.
type MongoMerchantRepo struct {
	coll *mongo.Collection
}

// NewMongoMerchantRepo creates a new instance of MerchantRepository using MongoDB.
func NewMongoMerchantRepo() MerchantRepository {
	repo := &MongoMerchantRepo{coll: database.Collection("merchants")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Error("failed to create merchant indexes", zap.Error(err))
	}
	return repo
}

// ensureIndexes creates indexes for fields that are frequently used in queries.
func (r *MongoMerchantRepo) ensureIndexes() error {
	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "published", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoMerchantRepo) findOne(ctx context.Context, filter bson.M) (*models.Merchant, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var m models.Merchant
	if err := r.coll.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("merchant %v: %w", filter, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch merchant: %w", err)
	}
	return &m, nil
}

func (r *MongoMerchantRepo) Create(ctx context.Context, m *models.Merchant) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to create merchant: %w", err)
	}
	return nil
}

func (r *MongoMerchantRepo) GetByID(ctx context.Context, id string) (*models.Merchant, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoMerchantRepo) GetBySlug(ctx context.Context, slug string) (*models.Merchant, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoMerchantRepo) List(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Query != "" {
		query["$or"] = bson.A{
			bson.M{"name": database.ContainsFold(filter.Query)},
			bson.M{"slug": database.ContainsFold(filter.Query)},
			bson.M{"address.city": database.ContainsFold(filter.Query)},
		}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Published != nil {
		query["published"] = *filter.Published
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count merchants: %w", err)
	}

	cursor, err := r.coll.Find(ctx, query, database.FindPage(filter.Limit, filter.Offset, "updatedAt"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve merchants: %w", err)
	}
	defer cursor.Close(ctx)

	merchants := []models.Merchant{}
	if err := cursor.All(ctx, &merchants); err != nil {
		return nil, 0, fmt.Errorf("failed to decode merchants: %w", err)
	}
	return merchants, total, nil
}

func (r *MongoMerchantRepo) update(ctx context.Context, id string, update bson.M) (*models.Merchant, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Merchant
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("merchant %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update merchant with id %s: %w", id, err)
	}
	return &m, nil
}

func (r *MongoMerchantRepo) UpdatePage(ctx context.Context, id string, page models.MerchantPage) (*models.Merchant, error) {
	return r.update(ctx, id, bson.M{
		"$set":         page,
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *MongoMerchantRepo) UpdateFields(ctx context.Context, id string, fields bson.M) (*models.Merchant, error) {
	return r.update(ctx, id, bson.M{
		"$set":         fields,
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *MongoMerchantRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete merchant with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("merchant %s: %w", id, database.ErrNotFound)
	}
	return nil
}
