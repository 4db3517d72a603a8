package storage

import (
	"context"
	"io"
)

// UploadResult identifies a stored asset.
type UploadResult struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

// StorageService defines the interface for media storage operations.
type StorageService interface {
	// UploadImage stores an image under folder and returns its identifier and public URL.
	UploadImage(ctx context.Context, file io.Reader, folder, filename string) (UploadResult, error)
	// DeleteFile deletes a stored asset by its public ID.
	DeleteFile(ctx context.Context, publicID string) error
	// GetDownloadURL returns the public delivery URL of an image.
	GetDownloadURL(ctx context.Context, publicID string) (string, error)
}
