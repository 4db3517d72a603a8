package review

import (
	"context"
	"fmt"
	"time"

	reviewRepo "localcity/database/repository/review"
	"localcity/models"
)

// RatingSink receives the recomputed review aggregate of a merchant.
// merchant.MerchantService satisfies it.
type RatingSink interface {
	ApplyRating(ctx context.Context, merchantID string, summary models.RatingSummary) error
}

type ReviewService interface {
	ListReviews(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int64, error)
	GetReview(ctx context.Context, id string) (*models.Review, error)
	Approve(ctx context.Context, id, adminID string) (*models.Review, error)
	Hide(ctx context.Context, id, adminID string) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}

// DefaultReviewService is the production implementation.
type DefaultReviewService struct {
	Repo    reviewRepo.ReviewRepository
	Ratings RatingSink
	Now     func() time.Time
}

func NewDefaultReviewService(repo reviewRepo.ReviewRepository, ratings RatingSink) (*DefaultReviewService, error) {
	if repo == nil || ratings == nil {
		return nil, fmt.Errorf("review service initialization error: one or more dependencies are nil")
	}
	return &DefaultReviewService{Repo: repo, Ratings: ratings, Now: time.Now}, nil
}
