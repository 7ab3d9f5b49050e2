package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/internal/dto"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/model"
	"github.com/famvault/auth-service/internal/repository"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/famvault/auth-service/pkg/mailer"
	"github.com/famvault/auth-service/pkg/storage"
	"gorm.io/gorm"
)

// AuthService orchestrates the account lifecycle: signup, credential and
// OAuth login, token rotation, logout and password management. Database
// writes that must land together run inside one transaction; everything
// observable from outside (mails, token issuance) happens after commit.
type AuthService struct {
	cfg *config.Config
	db  *gorm.DB

	userRepo         *repository.UserRepository
	oauthRepo        *repository.OAuthAccountRepository
	verificationRepo *repository.VerificationRequestRepository
	profileRepo      *repository.ParentProfileRepository
	resetStore       *repository.ResetTokenStore

	passwordService *PasswordService
	tokenService    *TokenService
	oauthService    *OAuthService

	store  storage.Storage
	mailer mailer.Mailer
}

func NewAuthService(
	cfg *config.Config,
	db *gorm.DB,
	userRepo *repository.UserRepository,
	oauthRepo *repository.OAuthAccountRepository,
	verificationRepo *repository.VerificationRequestRepository,
	profileRepo *repository.ParentProfileRepository,
	resetStore *repository.ResetTokenStore,
	passwordService *PasswordService,
	tokenService *TokenService,
	oauthService *OAuthService,
	store storage.Storage,
	m mailer.Mailer,
) *AuthService {
	return &AuthService{
		cfg:              cfg,
		db:               db,
		userRepo:         userRepo,
		oauthRepo:        oauthRepo,
		verificationRepo: verificationRepo,
		profileRepo:      profileRepo,
		resetStore:       resetStore,
		passwordService:  passwordService,
		tokenService:     tokenService,
		oauthService:     oauthService,
		store:            store,
		mailer:           m,
	}
}

// IDImage is the identity-document upload accompanying a PARENT signup.
type IDImage struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Signup registers a new credential account. The user row, verification
// request and (for parents) household profile are created in one
// transaction; a failure at any point leaves no trace of the attempt.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest, idImage *IDImage) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Signup")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToUpper(req.Role)

	taken, err := s.userRepo.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		logger.WarnWithContext(ctx, "Signup rejected, email slot consumed").
			String("email", email).
			Log()
		return nil, apperrors.ErrEmailExists
	}

	if role == constants.RoleParent && (idImage == nil || len(idImage.Data) == 0) {
		return nil, apperrors.ErrUnsupportedMedia
	}

	hash, err := s.passwordService.Hash(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	// The image goes to storage before the transaction opens; a rollback
	// must take the blob with it, never leave a half-created account.
	var imageURL *string
	var uploadedPath string
	if idImage != nil && len(idImage.Data) > 0 {
		uploaded, uploadErr := s.store.Upload(ctx, idImage.Data, idImage.Filename, idImage.ContentType, constants.StorageFolderIDDocuments)
		if uploadErr != nil {
			logger.ErrorWithContext(ctx, "Failed to upload identity document").
				Err(uploadErr).
				Log()
			return nil, apperrors.WrapError(apperrors.ErrInternal, uploadErr)
		}
		imageURL = &uploaded.URL
		uploadedPath = uploaded.Path
	}

	user := &model.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: &hash,
		Role:         role,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}

		request := &model.VerificationRequest{
			UserID:     user.ID,
			Role:       role,
			Status:     constants.VerificationPending,
			IDImageURL: imageURL,
		}
		if err := s.verificationRepo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}

		if role == constants.RoleParent {
			profile := &model.ParentProfile{
				UserID:            user.ID,
				Country:           req.Country,
				NumberOfChildren:  req.NumberOfChildren,
				MonthlyIncomeBase: req.MonthlyIncomeBase,
				MonthlyRentBase:   req.MonthlyRentBase,
				MonthlyLoansBase:  req.MonthlyLoansBase,
			}
			if err := s.profileRepo.WithTx(tx).Create(ctx, profile); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if uploadedPath != "" {
			// Nothing references the blob after the rollback.
			_ = s.store.Delete(context.WithoutCancel(ctx), uploadedPath)
		}
		logger.ErrorWithContext(ctx, "Signup transaction failed").
			String("email", email).
			Err(err).
			Log()
		return nil, err
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.notifySignup(ctx, user, idImage)

	logger.InfoWithContext(ctx, "User signed up").
		Uint("user_id", user.ID).
		String("role", role).
		Log()

	return &dto.AuthResponse{
		User:               toUserResponse(user),
		VerificationStatus: constants.VerificationPending,
		AccessToken:        pair.AccessToken,
		RefreshToken:       pair.RefreshToken,
		ExpiresIn:          pair.ExpiresIn,
	}, nil
}

// notifySignup fires the post-commit mails. Best effort: a mail failure
// is logged and never rolls back or fails the signup.
func (s *AuthService) notifySignup(ctx context.Context, user *model.User, idImage *IDImage) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.SendWelcomeEmail(user.Email, user.Name, user.Role); err != nil {
			logger.WarnWithContext(bg, "Failed to send welcome email").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
		if user.Role == constants.RoleParent && idImage != nil {
			if err := s.mailer.SendAdminReviewEmail(user.Name, user.Email, idImage.Data, idImage.Filename); err != nil {
				logger.WarnWithContext(bg, "Failed to send admin review email").
					Uint("user_id", user.ID).
					Err(err).
					Log()
			}
		}
	}()
}

// Login authenticates an email/password pair. Every failure mode answers
// with the same error, and the hashing work is performed even when the
// email is unknown so response timing does not reveal which accounts
// exist.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.passwordService.DummyVerify(req.Password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		// OAuth-only account; burn the hash cost anyway.
		s.passwordService.DummyVerify(req.Password)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.passwordService.Verify(req.Password, *user.PasswordHash) {
		logger.WarnWithContext(ctx, "Login failed, bad credential").
			Uint("user_id", user.ID).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	if s.passwordService.NeedsRehash(*user.PasswordHash) {
		if newHash, hashErr := s.passwordService.Hash(req.Password); hashErr == nil {
			if updateErr := s.userRepo.UpdatePassword(ctx, user.ID, newHash); updateErr != nil {
				logger.WarnWithContext(ctx, "Failed to upgrade password hash").
					Uint("user_id", user.ID).
					Err(updateErr).
					Log()
			}
		}
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	status, err := s.verificationStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "User logged in").
		Uint("user_id", user.ID).
		Log()

	return &dto.AuthResponse{
		User:               toUserResponse(user),
		VerificationStatus: status,
		AccessToken:        pair.AccessToken,
		RefreshToken:       pair.RefreshToken,
		ExpiresIn:          pair.ExpiresIn,
	}, nil
}

// OAuthLogin resolves a verified provider identity against local state:
// an existing link logs straight in, a matching active account gets the
// provider linked, and an unknown identity becomes a fresh account. An
// email slot consumed by a deleted account stays consumed, for OAuth as
// for credential signup.
func (s *AuthService) OAuthLogin(ctx context.Context, req *dto.OAuthLoginRequest) (*dto.OAuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "OAuthLogin")

	identity, err := s.oauthService.VerifyProviderToken(ctx, req.Provider, req.IDToken)
	if err != nil {
		return nil, err
	}

	var user *model.User
	isNewUser := false

	account, err := s.oauthRepo.GetByProviderSubject(ctx, identity.Provider, identity.Subject)
	switch {
	case err == nil:
		user, err = s.userRepo.GetByID(ctx, account.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return nil, apperrors.ErrUserDeleted
			}
			return nil, err
		}

	case errors.Is(err, apperrors.ErrUserNotFound):
		user, isNewUser, err = s.resolveUnlinkedIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	status, err := s.verificationStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "OAuth login").
		Uint("user_id", user.ID).
		String("provider", identity.Provider).
		Bool("is_new_user", isNewUser).
		Log()

	return &dto.OAuthResponse{
		AuthResponse: dto.AuthResponse{
			User:               toUserResponse(user),
			VerificationStatus: status,
			AccessToken:        pair.AccessToken,
			RefreshToken:       pair.RefreshToken,
			ExpiresIn:          pair.ExpiresIn,
		},
		IsNewUser: isNewUser,
	}, nil
}

// resolveUnlinkedIdentity handles a provider identity with no local
// link: link to the active account with the same email, or create a new
// account when the email is entirely unknown.
func (s *AuthService) resolveUnlinkedIdentity(ctx context.Context, identity *ProviderIdentity) (*model.User, bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	if err == nil {
		link := &model.OAuthAccount{
			Provider:   identity.Provider,
			ProviderID: identity.Subject,
			UserID:     user.ID,
		}
		if err := s.oauthRepo.Create(ctx, link); err != nil {
			return nil, false, err
		}
		logger.InfoWithContext(ctx, "Linked oauth provider to existing account").
			Uint("user_id", user.ID).
			String("provider", identity.Provider).
			Log()
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, err
	}

	taken, err := s.userRepo.EmailTaken(ctx, identity.Email)
	if err != nil {
		return nil, false, err
	}
	if taken {
		return nil, false, apperrors.ErrEmailExists
	}

	name := identity.Name
	if name == "" {
		// Default to the local part; some providers hand back opaque
		// relay addresses, so keep the whole string when it has no "@".
		name = identity.Email
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
	}

	// OAuth accounts default to PARENT with no identity document; the
	// verification request stays PENDING until documents arrive through
	// the review flow.
	newUser := &model.User{
		Email: identity.Email,
		Name:  name,
		Role:  constants.RoleParent,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(ctx, newUser); err != nil {
			return err
		}
		request := &model.VerificationRequest{
			UserID: newUser.ID,
			Role:   newUser.Role,
			Status: constants.VerificationPending,
		}
		if err := s.verificationRepo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}
		link := &model.OAuthAccount{
			Provider:   identity.Provider,
			ProviderID: identity.Subject,
			UserID:     newUser.ID,
		}
		return s.oauthRepo.WithTx(tx).Create(ctx, link)
	})
	if err != nil {
		return nil, false, err
	}

	s.notifySignup(ctx, newUser, nil)

	return newUser, true, nil
}

// Refresh rotates the presented refresh token into a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenPairResponse, error) {
	pair, _, err := s.tokenService.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout revokes the presented refresh token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")

	if req.RefreshToken == "" {
		return nil
	}
	return s.tokenService.RevokeRefreshToken(ctx, req.RefreshToken)
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID uint) (*dto.MeResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Me")

	user, err := s.userRepo.GetByIDWithProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.MeResponse{
		User:               toUserResponse(user),
		VerificationStatus: constants.VerificationPending,
	}
	if user.VerificationRequest != nil {
		resp.VerificationStatus = user.VerificationRequest.Status
	}
	if user.ParentProfile != nil {
		resp.ParentProfile = &dto.ParentProfileResponse{
			Country:           user.ParentProfile.Country,
			NumberOfChildren:  user.ParentProfile.NumberOfChildren,
			MonthlyIncomeBase: user.ParentProfile.MonthlyIncomeBase,
			MonthlyRentBase:   user.ParentProfile.MonthlyRentBase,
			MonthlyLoansBase:  user.ParentProfile.MonthlyLoansBase,
		}
	}

	return resp, nil
}

// ForgotPassword mints a single-use reset token and mails it. The
// response upstream is identical whether or not the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ForgotPassword")

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			logger.DebugWithContext(ctx, "Password reset requested for unknown email").Log()
			return nil
		}
		return err
	}

	raw, err := randomToken()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.resetStore.Save(ctx, HashToken(raw), user.ID, s.cfg.OAuth.ResetTokenTTL); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.App.BaseURL, raw)
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetLink, s.cfg.OAuth.ResetTokenTTL); err != nil {
			logger.WarnWithContext(bg, "Failed to send password reset email").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
	}()

	logger.InfoWithContext(ctx, "Password reset token issued").
		Uint("user_id", user.ID).
		Log()
	return nil
}

// ResetPassword redeems a reset token, replaces the credential, revokes
// every outstanding session and signs the user straight in with a fresh
// pair.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ResetPassword")

	userID, err := s.resetStore.Consume(ctx, HashToken(req.Token))
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwordService.Hash(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, err
	}

	if err := s.tokenService.RevokeAllUserTokens(ctx, userID); err != nil {
		return nil, err
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	status, err := s.verificationStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Password reset completed").
		Uint("user_id", userID).
		Log()

	return &dto.AuthResponse{
		User:               toUserResponse(user),
		VerificationStatus: status,
		AccessToken:        pair.AccessToken,
		RefreshToken:       pair.RefreshToken,
		ExpiresIn:          pair.ExpiresIn,
	}, nil
}

// ChangePassword verifies the current credential, swaps in the new one
// and revokes every outstanding session so stolen refresh tokens die
// with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ChangePassword")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == nil || !s.passwordService.Verify(req.CurrentPassword, derefOrEmpty(user.PasswordHash)) {
		return apperrors.ErrIncorrectPassword
	}

	hash, err := s.passwordService.Hash(req.NewPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.tokenService.RevokeAllUserTokens(ctx, userID); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Password changed").
		Uint("user_id", userID).
		Log()
	return nil
}

func (s *AuthService) verificationStatus(ctx context.Context, userID uint) (string, error) {
	request, err := s.verificationRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return constants.VerificationPending, nil
		}
		return "", err
	}
	return request.Status, nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// randomToken returns 32 bytes of entropy, URL-safe encoded.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
