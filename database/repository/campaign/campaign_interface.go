package campaignRepo

import (
	"context"

	"localcity/models"

	"go.mongodb.org/mongo-driver/bson"
)

// CampaignRepository defines methods for campaign data access.
type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	// List returns one page of campaigns, optionally restricted to a status.
	List(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]models.Campaign, int64, error)
	// UpdateDraft overwrites the composer fields of a campaign that is still
	// in one of the editable statuses.
	UpdateDraft(ctx context.Context, id string, draft models.CampaignDraft) (*models.Campaign, error)
	// Transition applies fields only while the campaign is in one of from.
	// It returns database.ErrNotFound when the campaign is missing or has moved on.
	Transition(ctx context.Context, id string, from []models.CampaignStatus, fields bson.M) (*models.Campaign, error)
	Delete(ctx context.Context, id string) error
}
