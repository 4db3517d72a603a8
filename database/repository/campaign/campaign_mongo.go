package campaignRepo

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

var editable = []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusFailed}

// MongoCampaignRepo implements CampaignRepository using MongoDB.
type MongoCampaignRepo struct {
	coll *mongo.Collection
}

// NewMongoCampaignRepo creates a new instance of CampaignRepository using MongoDB.
func NewMongoCampaignRepo() CampaignRepository {
	repo := &MongoCampaignRepo{coll: database.Collection("campaigns")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Error("failed to create campaign indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoCampaignRepo) ensureIndexes() error {
	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *MongoCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Campaign
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("campaign %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch campaign with id %s: %w", id, err)
	}
	return &c, nil
}

func (r *MongoCampaignRepo) List(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]models.Campaign, int64, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	cursor, err := r.coll.Find(ctx, query, database.FindPage(limit, offset, "updatedAt"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve campaigns: %w", err)
	}
	defer cursor.Close(ctx)

	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, 0, fmt.Errorf("failed to decode campaigns: %w", err)
	}
	return campaigns, total, nil
}

func (r *MongoCampaignRepo) UpdateDraft(ctx context.Context, id string, draft models.CampaignDraft) (*models.Campaign, error) {
	return r.findAndUpdate(ctx, bson.M{"id": id, "status": bson.M{"$in": editable}}, bson.M{
		"$set":         draft,
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *MongoCampaignRepo) Transition(ctx context.Context, id string, from []models.CampaignStatus, fields bson.M) (*models.Campaign, error) {
	return r.findAndUpdate(ctx, bson.M{"id": id, "status": bson.M{"$in": from}}, bson.M{
		"$set":         fields,
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *MongoCampaignRepo) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Campaign, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Campaign
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("campaign %v: %w", filter["id"], database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update campaign %v: %w", filter["id"], err)
	}
	return &c, nil
}

func (r *MongoCampaignRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete campaign with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("campaign %s: %w", id, database.ErrNotFound)
	}
	return nil
}
