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

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// GetByEmail resolves an active (not soft-deleted) user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByEmail")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get user by email").
			Err(result.Error).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &user, nil
}

// EmailTaken reports whether the email slot is consumed, counting
// soft-deleted rows. A deleted account keeps its address forever.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "EmailTaken")

	var count int64
	result := r.db.WithContext(ctx).Unscoped().Model(&model.User{}).
		Where("email = ?", email).
		Count(&count)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to check email slot").
			Err(result.Error).
			Log()
		return false, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return count > 0, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByID")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get user by ID").
			Uint("user_id", id).
			Err(result.Error).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &user, nil
}

// GetByIDWithProfile loads the user together with the verification state
// and, for parents, the household baseline.
func (r *UserRepository) GetByIDWithProfile(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByIDWithProfile")

	var user model.User
	result := r.db.WithContext(ctx).
		Preload("VerificationRequest").
		Preload("ParentProfile").
		Where("id = ?", id).
		First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get user with profile").
			Uint("user_id", id).
			Err(result.Error).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	logger.DebugWithContext(ctx, "User created").
		Uint("user_id", user.ID).
		Duration(time.Since(start)).
		Log()
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint, hash string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdatePassword")

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update password hash").
			Uint("user_id", userID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}
