package reviewRepo

import (
	"context"
	"time"

	"localcity/models"
)

// ReviewRepository defines methods for review data access.
type ReviewRepository interface {
	GetByID(ctx context.Context, id string) (*models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int64, error)
	// SetStatus records a moderation decision and clears the flag.
	SetStatus(ctx context.Context, id string, status models.ReviewStatus, by string, at time.Time) (*models.Review, error)
	Delete(ctx context.Context, id string) error
	// Summary aggregates the approved reviews of a merchant.
	Summary(ctx context.Context, merchantID string) (models.RatingSummary, error)
}
