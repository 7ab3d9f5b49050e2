package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/famvault/auth-service/config"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/model"
	"github.com/famvault/auth-service/internal/repository"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenClaims is the payload of both token kinds. Subject carries the
// user ID; TokenID is set on refresh tokens only and equals the primary
// key of the persisted row.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	TokenID   string `json:"token_id,omitempty"`
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	return uint(id), nil
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds
}

// TokenService mints and verifies JWTs and owns the persisted refresh
// token lifecycle. Access tokens are verified statelessly; refresh
// tokens are additionally checked against their stored row, which is the
// source of truth for revocation.
type TokenService struct {
	cfg       config.JWTConfig
	userRepo  *repository.UserRepository
	tokenRepo *repository.RefreshTokenRepository
	now       func() time.Time
}

func NewTokenService(cfg config.JWTConfig, userRepo *repository.UserRepository, tokenRepo *repository.RefreshTokenRepository) *TokenService {
	return &TokenService{
		cfg:       cfg,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		now:       time.Now,
	}
}

// HashToken returns the hex SHA-256 digest under which refresh tokens
// are stored and looked up.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateTokenPair mints a fresh access/refresh pair for the user and
// persists the refresh token's digest.
func (s *TokenService) GenerateTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GenerateTokenPair")

	now := s.now()
	subject := strconv.FormatUint(uint64(user.ID), 10)

	accessClaims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenTypeAccess,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	tokenID := uuid.NewString()
	refreshExpiry := now.Add(s.cfg.RefreshTTL)
	refreshClaims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			ID:        uuid.NewString(),
		},
		TokenType: tokenTypeRefresh,
		TokenID:   tokenID,
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	record := &model.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: HashToken(refreshToken),
		ExpiresAt: refreshExpiry,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.DebugWithContext(ctx, "Issued token pair").
		Uint("user_id", user.ID).
		String("token_id", tokenID).
		Log()

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperrors.ErrInvalidToken
			}
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.WrapError(apperrors.ErrExpiredToken, err)
		}
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// VerifyAccessToken validates signature, issuer, audience, expiry and
// token type of an access token.
func (s *TokenService) VerifyAccessToken(raw string) (*TokenClaims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken validates the refresh JWT and resolves its stored
// row, reporting revoked and expired states distinctly for callers and
// logging even though they all collapse to 401 at the edge.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, raw string) (*model.RefreshToken, *TokenClaims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpiredToken) {
			return nil, nil, apperrors.ErrExpiredRefreshToken
		}
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}
	if claims.TokenType != tokenTypeRefresh || claims.TokenID == "" {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}

	record, err := s.tokenRepo.GetByHash(ctx, HashToken(raw))
	if err != nil {
		return nil, nil, err
	}
	if record.ID != claims.TokenID {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}
	if record.Revoked() {
		return nil, nil, apperrors.ErrRevokedRefreshToken
	}
	if record.Expired(s.now()) {
		return nil, nil, apperrors.ErrExpiredRefreshToken
	}

	return record, claims, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked
// and a fresh pair is minted. Revocation is a conditional update, so of
// two concurrent rotations of the same token exactly one succeeds.
func (s *TokenService) RefreshTokens(ctx context.Context, raw string) (*TokenPair, *model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RefreshTokens")

	record, claims, err := s.VerifyRefreshToken(ctx, raw)
	if err != nil {
		logger.WarnWithContext(ctx, "Refresh rejected").
			Err(err).
			Log()
		return nil, nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// The row outlived its account. Revoke it so later replays
			// fail fast.
			_ = s.tokenRepo.Revoke(ctx, record.ID, s.now())
			return nil, nil, apperrors.ErrUserDeleted
		}
		return nil, nil, err
	}

	if err := s.tokenRepo.Revoke(ctx, record.ID, s.now()); err != nil {
		return nil, nil, err
	}

	pair, err := s.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	logger.InfoWithContext(ctx, "Refresh token rotated").
		Uint("user_id", user.ID).
		String("old_token_id", record.ID).
		Log()

	return pair, user, nil
}

// RevokeRefreshToken revokes the presented token if it is known and
// still active. Logout is idempotent: unknown and already-revoked tokens
// are not an error.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, raw string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "RevokeRefreshToken")

	record, err := s.tokenRepo.GetByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRefreshToken) {
			return nil
		}
		return err
	}

	if err := s.tokenRepo.Revoke(ctx, record.ID, s.now()); err != nil {
		if errors.Is(err, apperrors.ErrRevokedRefreshToken) {
			return nil
		}
		return err
	}

	return nil
}

// RevokeAllUserTokens revokes every active refresh token the user holds.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	_, err := s.tokenRepo.RevokeAllForUser(ctx, userID, s.now())
	return err
}

// CleanupExpiredTokens garbage-collects expired rows and revoked rows
// past the retention window. Run periodically from the server loop.
func (s *TokenService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CleanupExpiredTokens")

	deleted, err := s.tokenRepo.DeleteExpired(ctx, s.now(), s.cfg.RevokedTokenGC)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		logger.InfoWithContext(ctx, "Cleaned up refresh tokens").
			Int64("deleted", deleted).
			Log()
	}
	return deleted, nil
}
