package merchant

import (
	"context"
	"fmt"
	"io"
	"sort"

	"localcity/models"
	"localcity/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// mergeMedia keeps the server's image records authoritative. Page edits may
// change gallery captions and order but cannot add, drop or repoint images;
// that goes through UploadImage and RemoveImage.
func mergeMedia(existing *models.Merchant, page models.MerchantPage) models.MerchantPage {
	page.LogoURL = existing.LogoURL
	page.CoverURL = existing.CoverURL

	stored := make(map[string]models.GalleryImage, len(existing.Gallery))
	for _, img := range existing.Gallery {
		stored[img.ID] = img
	}
	gallery := make([]models.GalleryImage, 0, len(existing.Gallery))
	seen := make(map[string]bool, len(existing.Gallery))
	for _, img := range page.Gallery {
		s, ok := stored[img.ID]
		if !ok || seen[img.ID] {
			continue
		}
		s.Caption = img.Caption
		gallery = append(gallery, s)
		seen[img.ID] = true
	}
	for _, img := range sortedGallery(existing.Gallery) {
		if !seen[img.ID] {
			gallery = append(gallery, img)
		}
	}
	page.Gallery = renumber(gallery)
	return page
}

func sortedGallery(g []models.GalleryImage) []models.GalleryImage {
	out := append([]models.GalleryImage(nil), g...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func renumber(g []models.GalleryImage) []models.GalleryImage {
	for i := range g {
		g[i].Position = i
	}
	return g
}

func mediaIDs(m *models.Merchant) []string {
	var ids []string
	for _, id := range []string{m.LogoID, m.CoverID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	for _, img := range m.Gallery {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	return ids
}

func (s *DefaultMerchantService) deleteAsset(ctx context.Context, publicID string) error {
	if s.Storage == nil || publicID == "" {
		return nil
	}
	return s.Storage.DeleteFile(ctx, publicID)
}

func (s *DefaultMerchantService) LoadPage(ctx context.Context, id string) (models.MerchantPage, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return models.MerchantPage{}, err
	}
	return m.MerchantPage, nil
}

// SavePage stores an editor snapshot and returns the page as persisted, with
// hours normalized and media fields taken from the stored record.
func (s *DefaultMerchantService) SavePage(ctx context.Context, id string, page models.MerchantPage) (models.MerchantPage, error) {
	m, _, err := s.UpdateMerchant(ctx, id, page)
	if err != nil {
		return models.MerchantPage{}, err
	}
	return m.MerchantPage, nil
}

func (s *DefaultMerchantService) UploadImage(ctx context.Context, id string, kind ImageKind, file io.Reader, filename string) (*models.Merchant, error) {
	if s.Storage == nil {
		return nil, fmt.Errorf("%w: media storage is not configured", utils.ErrUnavailable)
	}
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if kind == ImageGallery && len(m.Gallery) >= MaxGalleryImages {
		return nil, fmt.Errorf("%w: gallery is limited to %d images", utils.ErrInvalidInput, MaxGalleryImages)
	}

	folder := fmt.Sprintf("merchants/%s/%s", id, kind)
	res, err := s.Storage.UploadImage(ctx, file, folder, filename)
	if err != nil {
		return nil, err
	}

	var fields bson.M
	var replaced string
	switch kind {
	case ImageLogo:
		fields, replaced = bson.M{"logoUrl": res.URL, "logoId": res.PublicID}, m.LogoID
	case ImageCover:
		fields, replaced = bson.M{"coverUrl": res.URL, "coverId": res.PublicID}, m.CoverID
	case ImageGallery:
		gallery := append(sortedGallery(m.Gallery), models.GalleryImage{
			ID:       uuid.New().String(),
			URL:      res.URL,
			PublicID: res.PublicID,
		})
		fields = bson.M{"gallery": renumber(gallery)}
	default:
		_ = s.deleteAsset(ctx, res.PublicID)
		return nil, fmt.Errorf("%w: unknown image kind %q", utils.ErrInvalidInput, kind)
	}

	updated, err := s.Repo.UpdateFields(ctx, id, fields)
	if err != nil {
		if derr := s.deleteAsset(ctx, res.PublicID); derr != nil {
			zap.L().Warn("failed to remove orphaned upload", zap.String("publicID", res.PublicID), zap.Error(derr))
		}
		return nil, err
	}
	if replaced != "" {
		if err := s.deleteAsset(ctx, replaced); err != nil {
			zap.L().Warn("failed to delete replaced image", zap.String("merchantID", id), zap.String("publicID", replaced), zap.Error(err))
		}
	}
	zap.L().Info("merchant image uploaded", zap.String("merchantID", id), zap.String("kind", string(kind)), zap.String("publicID", res.PublicID))
	return updated, nil
}

// RemoveImage clears the logo or cover, or drops one gallery image by ID.
func (s *DefaultMerchantService) RemoveImage(ctx context.Context, id string, kind ImageKind, imageID string) (*models.Merchant, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields bson.M
	var removed string
	switch kind {
	case ImageLogo:
		fields, removed = bson.M{"logoUrl": "", "logoId": ""}, m.LogoID
	case ImageCover:
		fields, removed = bson.M{"coverUrl": "", "coverId": ""}, m.CoverID
	case ImageGallery:
		gallery := make([]models.GalleryImage, 0, len(m.Gallery))
		for _, img := range sortedGallery(m.Gallery) {
			if img.ID == imageID {
				removed = img.PublicID
				continue
			}
			gallery = append(gallery, img)
		}
		if removed == "" {
			return nil, fmt.Errorf("%w: gallery image %q not found", utils.ErrInvalidInput, imageID)
		}
		fields = bson.M{"gallery": renumber(gallery)}
	default:
		return nil, fmt.Errorf("%w: unknown image kind %q", utils.ErrInvalidInput, kind)
	}

	updated, err := s.Repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if err := s.deleteAsset(ctx, removed); err != nil {
		zap.L().Warn("failed to delete removed image", zap.String("merchantID", id), zap.String("publicID", removed), zap.Error(err))
	}
	return updated, nil
}

// ReorderGallery applies a drag-and-drop order. imageIDs must be a
// permutation of the current gallery.
func (s *DefaultMerchantService) ReorderGallery(ctx context.Context, id string, imageIDs []string) (*models.Merchant, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(imageIDs) != len(m.Gallery) {
		return nil, fmt.Errorf("%w: expected %d image ids, got %d", utils.ErrInvalidInput, len(m.Gallery), len(imageIDs))
	}
	byID := make(map[string]models.GalleryImage, len(m.Gallery))
	for _, img := range m.Gallery {
		byID[img.ID] = img
	}
	gallery := make([]models.GalleryImage, 0, len(imageIDs))
	for _, imgID := range imageIDs {
		img, ok := byID[imgID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown or repeated image id %q", utils.ErrInvalidInput, imgID)
		}
		delete(byID, imgID)
		gallery = append(gallery, img)
	}
	return s.Repo.UpdateFields(ctx, id, bson.M{"gallery": renumber(gallery)})
}
