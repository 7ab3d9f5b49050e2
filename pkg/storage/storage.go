package storage

import (
	"context"
	"fmt"

	"github.com/famvault/auth-service/config"
)

// UploadResult describes a stored object.
type UploadResult struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Storage is the capability interface for file persistence. The concrete
// backend (local disk or S3-compatible object store) is selected once at
// startup from configuration.
type Storage interface {
	Upload(ctx context.Context, data []byte, filename, contentType, folder string) (*UploadResult, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// NewStorage builds the backend named by cfg.Driver.
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
