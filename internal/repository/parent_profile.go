package repository

import (
	"context"
	"errors"

	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/model"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type ParentProfileRepository struct {
	db *gorm.DB
}

func NewParentProfileRepository(db *gorm.DB) *ParentProfileRepository {
	return &ParentProfileRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ParentProfileRepository) WithTx(tx *gorm.DB) *ParentProfileRepository {
	return &ParentProfileRepository{db: tx}
}

func (r *ParentProfileRepository) Create(ctx context.Context, profile *model.ParentProfile) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateParentProfile")

	result := r.db.WithContext(ctx).Create(profile)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create parent profile").
			Uint("user_id", profile.UserID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return nil
}

func (r *ParentProfileRepository) GetByUserID(ctx context.Context, userID uint) (*model.ParentProfile, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetProfileByUserID")

	var profile model.ParentProfile
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &profile, nil
}
