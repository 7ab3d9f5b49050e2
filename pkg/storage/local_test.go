package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/famvault/auth-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	base := t.TempDir()
	store, err := NewStorage(config.StorageConfig{
		Driver:    "local",
		LocalPath: base,
		LocalURL:  "http://localhost:8080/files",
	})
	require.NoError(t, err)

	result, err := store.Upload(context.Background(), []byte("image bytes"), "passport.jpg", "image/jpeg", "id-documents")
	require.NoError(t, err)

	assert.Contains(t, result.Path, "id-documents/")
	assert.Contains(t, result.URL, "http://localhost:8080/files/")
	assert.Equal(t, ".jpg", filepath.Ext(result.Path))
	assert.Equal(t, int64(len("image bytes")), result.Size)

	data, err := os.ReadFile(filepath.Join(base, result.Path))
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), result.Path))
	_, err = os.Stat(filepath.Join(base, result.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_UniqueNames(t *testing.T) {
	store, err := NewStorage(config.StorageConfig{
		Driver:    "local",
		LocalPath: t.TempDir(),
		LocalURL:  "http://localhost:8080/files",
	})
	require.NoError(t, err)

	first, err := store.Upload(context.Background(), []byte("a"), "same.png", "image/png", "id-documents")
	require.NoError(t, err)
	second, err := store.Upload(context.Background(), []byte("b"), "same.png", "image/png", "id-documents")
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
}

func TestNewStorage_UnknownDriver(t *testing.T) {
	_, err := NewStorage(config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
