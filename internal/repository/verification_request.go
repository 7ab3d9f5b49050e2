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

type VerificationRequestRepository struct {
	db *gorm.DB
}

func NewVerificationRequestRepository(db *gorm.DB) *VerificationRequestRepository {
	return &VerificationRequestRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *VerificationRequestRepository) WithTx(tx *gorm.DB) *VerificationRequestRepository {
	return &VerificationRequestRepository{db: tx}
}

func (r *VerificationRequestRepository) Create(ctx context.Context, request *model.VerificationRequest) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateVerificationRequest")

	result := r.db.WithContext(ctx).Create(request)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create verification request").
			Uint("user_id", request.UserID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return nil
}

func (r *VerificationRequestRepository) GetByUserID(ctx context.Context, userID uint) (*model.VerificationRequest, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetVerificationByUserID")

	var request model.VerificationRequest
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&request)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &request, nil
}
