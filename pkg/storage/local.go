package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage persists uploads under a base directory on local disk.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates the base directory if missing.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, filename, contentType, folder string) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectPath := path.Join(folder, randomName(filename))

	dir := filepath.Join(s.basePath, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(objectPath))
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      s.PublicURL(objectPath),
		Path:     objectPath,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(objectPath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) PublicURL(objectPath string) string {
	return s.baseURL + "/" + objectPath
}

// randomName keeps the original extension but replaces the name with a
// UUID so uploads can never collide or traverse paths.
func randomName(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return uuid.NewString() + ext
}
