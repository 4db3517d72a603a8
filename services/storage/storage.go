package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// StorageServiceImpl stores merchant media on Cloudinary.
type StorageServiceImpl struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

// NewStorageService creates a new StorageServiceImpl instance.
func NewStorageService(cld *cloudinary.Cloudinary, cloudName string) StorageService {
	zap.L().Debug("initializing cloudinary storage", zap.String("cloudName", cloudName))
	return &StorageServiceImpl{
		cld:       cld,
		cloudName: cloudName,
	}
}

// UploadImage uploads an image into folder. The file name without extension
// seeds the public ID so assets stay recognizable in the media library.
func (s *StorageServiceImpl) UploadImage(ctx context.Context, file io.Reader, folder, filename string) (UploadResult, error) {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	uploadParams := uploader.UploadParams{
		Folder:         folder,
		PublicID:       base,
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	}
	result, err := s.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return UploadResult{}, fmt.Errorf("StorageServiceImpl: failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return UploadResult{}, fmt.Errorf("StorageServiceImpl: upload rejected: %s", result.Error.Message)
	}
	if result.PublicID == "" {
		return UploadResult{}, fmt.Errorf("StorageServiceImpl: no public ID returned")
	}
	return UploadResult{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// DeleteFile deletes a file from Cloudinary given its public ID.
func (s *StorageServiceImpl) DeleteFile(ctx context.Context, publicID string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("StorageServiceImpl: failed to delete file: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("StorageServiceImpl: delete of %s returned %q", publicID, res.Result)
	}
	return nil
}

// GetDownloadURL constructs the public URL of an image asset.
func (s *StorageServiceImpl) GetDownloadURL(ctx context.Context, publicID string) (string, error) {
	a, err := s.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("StorageServiceImpl: failed to get asset: %w", err)
	}
	url, err := a.String()
	if err != nil {
		return "", fmt.Errorf("StorageServiceImpl: failed to get URL string: %w", err)
	}
	return url, nil
}
