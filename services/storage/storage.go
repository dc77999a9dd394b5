// Package storage holds the MediaStore collaborator: upload of dispute
// evidence and other user media to Cloudinary.
package storage

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"servifix/config"
)

// MediaStore uploads media and returns a stable URL for it.
type MediaStore interface {
	Upload(ctx context.Context, file interface{}, folder string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// CloudinaryStore implements MediaStore over Cloudinary.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStore builds a MediaStore from the app configuration.
func NewCloudinaryStore() (*CloudinaryStore, error) {
	cfg := config.AppConfig
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not configured")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init failed: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Upload sends a file (path, io.Reader or multipart header) to Cloudinary
// and returns its secure URL.
func (s *CloudinaryStore) Upload(ctx context.Context, file interface{}, folder string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("media upload returned no URL")
	}
	return result.SecureURL, nil
}

// Delete removes a previously uploaded file by public id.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("media delete failed: %w", err)
	}
	return nil
}
