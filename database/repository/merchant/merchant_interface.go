package merchantRepo

import (
	"context"

	"localcity/models"

	"go.mongodb.org/mongo-driver/bson"
)

// MerchantRepository defines methods for merchant data access.
type MerchantRepository interface {
	// Create inserts a new merchant record.
	Create(ctx context.Context, m *models.Merchant) error
	// GetByID retrieves a merchant by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Merchant, error)
	// GetBySlug retrieves a merchant by its public URL slug.
	GetBySlug(ctx context.Context, slug string) (*models.Merchant, error)
	// List returns one page of merchants matching filter and the total match count.
	List(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error)
	// UpdatePage overwrites the editable page fields and returns the stored merchant.
	UpdatePage(ctx context.Context, id string, page models.MerchantPage) (*models.Merchant, error)
	// UpdateFields applies a $set document and returns the stored merchant.
	UpdateFields(ctx context.Context, id string, fields bson.M) (*models.Merchant, error)
	// Delete removes a merchant record by its ID.
	Delete(ctx context.Context, id string) error
}
