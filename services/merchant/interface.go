package merchant

import (
	"context"
	"fmt"
	"io"

	merchantRepo "localcity/database/repository/merchant"
	"localcity/models"
	"localcity/services/hours"
	"localcity/services/storage"
)

// ImageKind names an image slot on the merchant page.
type ImageKind string

const (
	ImageLogo    ImageKind = "logo"
	ImageCover   ImageKind = "cover"
	ImageGallery ImageKind = "gallery"
)

// MaxGalleryImages caps the gallery size.
const MaxGalleryImages = 24

// HoursWarning lists days whose stored hours could not be read and were
// replaced by the default opening hours.
type HoursWarning struct {
	Days []hours.Weekday `json:"days"`
}

type MerchantService interface {
	ListMerchants(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error)
	GetMerchant(ctx context.Context, id string) (*models.Merchant, error)
	CreateMerchant(ctx context.Context, page models.MerchantPage, ownerID string) (*models.Merchant, *HoursWarning, error)
	UpdateMerchant(ctx context.Context, id string, page models.MerchantPage) (*models.Merchant, *HoursWarning, error)
	DeleteMerchant(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) (*models.Merchant, error)
	UpdateHours(ctx context.Context, id string, week hours.Week) (*models.Merchant, *HoursWarning, error)

	// Editor binding.
	LoadPage(ctx context.Context, id string) (models.MerchantPage, error)
	SavePage(ctx context.Context, id string, page models.MerchantPage) (models.MerchantPage, error)

	// Media.
	UploadImage(ctx context.Context, id string, kind ImageKind, file io.Reader, filename string) (*models.Merchant, error)
	RemoveImage(ctx context.Context, id string, kind ImageKind, imageID string) (*models.Merchant, error)
	ReorderGallery(ctx context.Context, id string, imageIDs []string) (*models.Merchant, error)

	// ApplyRating stores the review aggregate of a merchant.
	ApplyRating(ctx context.Context, id string, summary models.RatingSummary) error
}

// DefaultMerchantService is the production implementation.
type DefaultMerchantService struct {
	Repo    merchantRepo.MerchantRepository
	Storage storage.StorageService
}

func NewDefaultMerchantService(repo merchantRepo.MerchantRepository, store storage.StorageService) (*DefaultMerchantService, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchant service initialization error: repository is nil")
	}
	return &DefaultMerchantService{Repo: repo, Storage: store}, nil
}
