package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/famvault/auth-service/internal/constants"
	apperrors "github.com/famvault/auth-service/internal/errors"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ResetTokenStore keeps password-reset tokens in Redis, keyed by the
// SHA-256 digest of the raw token so the store never sees the mailed
// value. TTL expiry and single-use consumption both come for free from
// Redis semantics.
type ResetTokenStore struct {
	client *redis.Client
}

func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func (s *ResetTokenStore) key(digest string) string {
	return constants.CacheKeyResetToken + digest
}

// Save stores the digest -> user mapping with the given TTL.
func (s *ResetTokenStore) Save(ctx context.Context, digest string, userID uint, ttl time.Duration) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SaveResetToken")

	if err := s.client.Set(ctx, s.key(digest), strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store reset token").
			Uint("user_id", userID).
			Err(err).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// Consume atomically reads and deletes the mapping, so a token can be
// redeemed at most once. Unknown, already-used, and expired tokens are
// indistinguishable to the caller.
func (s *ResetTokenStore) Consume(ctx context.Context, digest string) (uint, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ConsumeResetToken")

	value, err := s.client.GetDel(ctx, s.key(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperrors.ErrResetTokenUsed
		}
		logger.ErrorWithContext(ctx, "Failed to consume reset token").
			Err(err).
			Log()
		return 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	userID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return uint(userID), nil
}
