package review

import (
	"context"
	"fmt"

	"localcity/models"

	"go.uber.org/zap"
)

func (s *DefaultReviewService) ListReviews(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int64, error) {
	return s.Repo.List(ctx, filter)
}

func (s *DefaultReviewService) GetReview(ctx context.Context, id string) (*models.Review, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultReviewService) Approve(ctx context.Context, id, adminID string) (*models.Review, error) {
	return s.moderate(ctx, id, models.ReviewApproved, adminID)
}

// Hide removes a review from the public page without deleting it.
func (s *DefaultReviewService) Hide(ctx context.Context, id, adminID string) (*models.Review, error) {
	return s.moderate(ctx, id, models.ReviewHidden, adminID)
}

func (s *DefaultReviewService) moderate(ctx context.Context, id string, status models.ReviewStatus, adminID string) (*models.Review, error) {
	before, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rev, err := s.Repo.SetStatus(ctx, id, status, adminID, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	zap.L().Info("review moderated",
		zap.String("reviewID", id),
		zap.String("merchantID", rev.MerchantID),
		zap.String("status", string(status)),
		zap.String("adminID", adminID))

	// Only approved reviews count towards the rating.
	if before.Status == models.ReviewApproved || status == models.ReviewApproved {
		if err := s.refreshRating(ctx, rev.MerchantID); err != nil {
			return rev, err
		}
	}
	return rev, nil
}

func (s *DefaultReviewService) Delete(ctx context.Context, id string) error {
	rev, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	zap.L().Info("review deleted", zap.String("reviewID", id), zap.String("merchantID", rev.MerchantID))
	if rev.Status != models.ReviewApproved {
		return nil
	}
	return s.refreshRating(ctx, rev.MerchantID)
}

func (s *DefaultReviewService) refreshRating(ctx context.Context, merchantID string) error {
	summary, err := s.Repo.Summary(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("summarize reviews of merchant %s: %w", merchantID, err)
	}
	if err := s.Ratings.ApplyRating(ctx, merchantID, summary); err != nil {
		return fmt.Errorf("update rating of merchant %s: %w", merchantID, err)
	}
	return nil
}
