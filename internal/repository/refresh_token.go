package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/model"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateRefreshToken")

	result := r.db.WithContext(ctx).Create(token)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to persist refresh token").
			Uint("user_id", token.UserID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return nil
}

// GetByHash resolves a stored token by the SHA-256 digest of its raw
// value. Presented tokens are always looked up by digest, never by the
// raw string.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetRefreshTokenByHash")

	var token model.RefreshToken
	result := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		logger.ErrorWithContext(ctx, "Failed to look up refresh token").
			Err(result.Error).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &token, nil
}

// Revoke marks one token revoked. The WHERE clause only matches rows that
// are still active, so two concurrent rotations of the same token race on
// the same UPDATE and exactly one of them wins; the loser sees zero rows
// affected and gets ErrRevokedRefreshToken.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenID string, now time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeRefreshToken")

	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", now)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke refresh token").
			String("token_id", tokenID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrRevokedRefreshToken
	}

	return nil
}

// RevokeAllForUser revokes every active token belonging to the user.
// Used on password change and on full logout.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint, now time.Time) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeAllForUser")

	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke user tokens").
			Uint("user_id", userID).
			Err(result.Error).
			Log()
		return 0, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	logger.InfoWithContext(ctx, "Revoked all refresh tokens for user").
		Uint("user_id", userID).
		Int64("revoked", result.RowsAffected).
		Log()
	return result.RowsAffected, nil
}

// DeleteExpired removes rows whose expiry passed before the cutoff, and
// revoked rows older than the retention window. Revoked rows are kept for
// a while so replay attempts keep answering "revoked" rather than
// "unknown token".
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time, revokedRetention time.Duration) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "DeleteExpiredTokens")

	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", now.Add(-revokedRetention)).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete expired tokens").
			Err(result.Error).
			Log()
		return 0, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return result.RowsAffected, nil
}

// CountActiveForUser reports how many usable tokens the user holds.
func (r *RefreshTokenRepository) CountActiveForUser(ctx context.Context, userID uint, now time.Time) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "CountActiveForUser")

	var count int64
	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Count(&count)
	if result.Error != nil {
		return 0, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return count, nil
}
