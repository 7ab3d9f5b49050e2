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

type OAuthAccountRepository struct {
	db *gorm.DB
}

func NewOAuthAccountRepository(db *gorm.DB) *OAuthAccountRepository {
	return &OAuthAccountRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *OAuthAccountRepository) WithTx(tx *gorm.DB) *OAuthAccountRepository {
	return &OAuthAccountRepository{db: tx}
}

// GetByProviderSubject resolves a link by the provider's stable subject
// identifier. Returns ErrUserNotFound when no link exists.
func (r *OAuthAccountRepository) GetByProviderSubject(ctx context.Context, provider, providerID string) (*model.OAuthAccount, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByProviderSubject")

	var account model.OAuthAccount
	result := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to look up oauth link").
			String("provider", provider).
			Err(result.Error).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return &account, nil
}

func (r *OAuthAccountRepository) Create(ctx context.Context, account *model.OAuthAccount) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateOAuthAccount")

	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create oauth link").
			String("provider", account.Provider).
			Uint("user_id", account.UserID).
			Err(result.Error).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, result.Error)
	}

	return nil
}
