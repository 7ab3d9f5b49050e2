package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResetStore(t *testing.T) (*ResetTokenStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewResetTokenStore(client), mr
}

func TestResetTokenStore_SaveAndConsume(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "digest-abc", 42, time.Hour))

	userID, err := store.Consume(ctx, "digest-abc")
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestResetTokenStore_SingleUse(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "digest-abc", 42, time.Hour))

	_, err := store.Consume(ctx, "digest-abc")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "digest-abc")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)
}

func TestResetTokenStore_UnknownDigest(t *testing.T) {
	store, _ := newTestResetStore(t)

	_, err := store.Consume(context.Background(), "never-saved")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)
}

func TestResetTokenStore_Expiry(t *testing.T) {
	store, mr := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "digest-abc", 42, time.Hour))
	mr.FastForward(61 * time.Minute)

	_, err := store.Consume(ctx, "digest-abc")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)
}
