package merchant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"localcity/database"
	"localcity/models"
	"localcity/services/hours"
	"localcity/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a merchant name into a URL path segment.
func Slugify(name string) string {
	s := slugUnsafe.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		s = "merchant"
	}
	return s
}

// normalizeHours migrates the week to canonical form and reports the days
// that had to be guessed.
func normalizeHours(merchantID string, w hours.Week) (hours.Week, *HoursWarning) {
	normalized, guessed := w.Normalize()
	if len(guessed) == 0 {
		return normalized, nil
	}
	zap.L().Warn("unrecognized hours replaced with defaults",
		zap.String("merchantID", merchantID),
		zap.Any("days", guessed))
	return normalized, &HoursWarning{Days: guessed}
}

func (s *DefaultMerchantService) ListMerchants(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error) {
	return s.Repo.List(ctx, filter)
}

func (s *DefaultMerchantService) GetMerchant(ctx context.Context, id string) (*models.Merchant, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultMerchantService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for i := 0; i < 5; i++ {
		_, err := s.Repo.GetBySlug(ctx, slug)
		if errors.Is(err, database.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%s", base, uuid.NewString()[:6])
	}
	return "", fmt.Errorf("%w: could not allocate a slug for %q", utils.ErrConflict, name)
}

func (s *DefaultMerchantService) CreateMerchant(ctx context.Context, page models.MerchantPage, ownerID string) (*models.Merchant, *HoursWarning, error) {
	page.LogoURL, page.CoverURL, page.Gallery = "", "", nil
	if err := utils.ValidateStruct(page); err != nil {
		return nil, nil, err
	}

	id := uuid.New().String()
	var warning *HoursWarning
	page.Hours, warning = normalizeHours(id, page.Hours)
	if page.Design == "" {
		page.Design = models.DesignClassic
	}

	slug, err := s.uniqueSlug(ctx, page.Name)
	if err != nil {
		return nil, nil, err
	}
	m := &models.Merchant{
		ID:           id,
		Slug:         slug,
		MerchantPage: page,
		OwnerID:      ownerID,
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return nil, nil, err
	}
	zap.L().Info("merchant created", zap.String("merchantID", id), zap.String("slug", slug))
	return m, warning, nil
}

func (s *DefaultMerchantService) UpdateMerchant(ctx context.Context, id string, page models.MerchantPage) (*models.Merchant, *HoursWarning, error) {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateStruct(page); err != nil {
		return nil, nil, err
	}
	var warning *HoursWarning
	page.Hours, warning = normalizeHours(id, page.Hours)
	page = mergeMedia(existing, page)

	m, err := s.Repo.UpdatePage(ctx, id, page)
	if err != nil {
		return nil, nil, err
	}
	return m, warning, nil
}

func (s *DefaultMerchantService) DeleteMerchant(ctx context.Context, id string) error {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	// Media cleanup is best effort; the record is already gone.
	for _, publicID := range mediaIDs(m) {
		if err := s.deleteAsset(ctx, publicID); err != nil {
			zap.L().Warn("failed to delete merchant media", zap.String("merchantID", id), zap.String("publicID", publicID), zap.Error(err))
		}
	}
	zap.L().Info("merchant deleted", zap.String("merchantID", id))
	return nil
}

func (s *DefaultMerchantService) SetPublished(ctx context.Context, id string, published bool) (*models.Merchant, error) {
	if published {
		m, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := utils.ValidateStruct(m.MerchantPage); err != nil {
			return nil, fmt.Errorf("cannot publish incomplete page: %w", err)
		}
	}
	return s.Repo.UpdateFields(ctx, id, bson.M{"published": published})
}

func (s *DefaultMerchantService) UpdateHours(ctx context.Context, id string, week hours.Week) (*models.Merchant, *HoursWarning, error) {
	for day := range week {
		if !day.Valid() {
			return nil, nil, fmt.Errorf("%w: unknown day %q", utils.ErrInvalidInput, day)
		}
	}
	normalized, warning := normalizeHours(id, week)
	m, err := s.Repo.UpdateFields(ctx, id, bson.M{"hours": normalized})
	if err != nil {
		return nil, nil, err
	}
	return m, warning, nil
}

func (s *DefaultMerchantService) ApplyRating(ctx context.Context, id string, summary models.RatingSummary) error {
	_, err := s.Repo.UpdateFields(ctx, id, bson.M{
		"rating":      summary.Average,
		"reviewCount": summary.Count,
	})
	return err
}
