package receiptRepo

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

// MongoReceiptRepo implements ReceiptRepository using MongoDB.
type MongoReceiptRepo struct {
	coll *mongo.Collection
}

func NewMongoReceiptRepo() ReceiptRepository {
	repo := &MongoReceiptRepo{coll: database.Collection("receipts")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Error("failed to create receipt indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoReceiptRepo) ensureIndexes() error {
	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "merchantId", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoReceiptRepo) GetByID(ctx context.Context, id string) (*models.Receipt, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.Receipt
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("receipt %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch receipt with id %s: %w", id, err)
	}
	return &rec, nil
}

func buildQuery(filter models.ReceiptFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.MerchantID != "" {
		query["merchantId"] = filter.MerchantID
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	created := bson.M{}
	if filter.From != nil {
		created["$gte"] = *filter.From
	}
	if filter.To != nil {
		// To is inclusive of the whole day.
		created["$lt"] = filter.To.Add(24 * time.Hour)
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}
	return query
}

func (r *MongoReceiptRepo) List(ctx context.Context, filter models.ReceiptFilter) ([]models.Receipt, int64, error) {
	ctx, cancel := database.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := buildQuery(filter)
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	cursor, err := r.coll.Find(ctx, query, database.FindPage(filter.Limit, filter.Offset, "createdAt"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve receipts: %w", err)
	}
	defer cursor.Close(ctx)

	receipts := []models.Receipt{}
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, 0, fmt.Errorf("failed to decode receipts: %w", err)
	}
	return receipts, total, nil
}

func (r *MongoReceiptRepo) Decide(ctx context.Context, id string, d Decision) (*models.Receipt, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":     d.Status,
		"reviewedBy": d.DecidedBy,
		"reviewedAt": d.DecidedAt,
	}
	if d.Reason != "" {
		set["rejectionReason"] = d.Reason
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	filter := bson.M{"id": id, "status": models.ReceiptPending}
	var rec models.Receipt
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("pending receipt %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update receipt with id %s: %w", id, err)
	}
	return &rec, nil
}
