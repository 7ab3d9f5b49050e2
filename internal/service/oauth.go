package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/constants"
	apperrors "github.com/famvault/auth-service/internal/errors"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

const (
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	appleKeysURL       = "https://appleid.apple.com/auth/keys"
	appleIssuer        = "https://appleid.apple.com"

	appleKeysCacheTTL = time.Hour
)

// ProviderIdentity is the verified identity extracted from a provider's
// ID token. Subject is the provider's stable identifier for the person;
// email addresses can change, subjects cannot.
type ProviderIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// OAuthService verifies Google and Apple ID tokens server side. A
// provider with no configured client ID is treated as disabled.
type OAuthService struct {
	cfg    config.OAuthConfig
	client *http.Client

	// endpoint overrides, empty in production
	googleTokenInfoURL string
	appleKeysURL       string

	mu            sync.Mutex
	appleKeys     map[string]*rsa.PublicKey
	appleKeysTime time.Time
}

func NewOAuthService(cfg config.OAuthConfig) *OAuthService {
	return &OAuthService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewOAuthServiceWithEndpoints is used by tests to point verification at
// local stand-ins for the provider endpoints.
func NewOAuthServiceWithEndpoints(cfg config.OAuthConfig, client *http.Client, tokenInfoURL, keysURL string) *OAuthService {
	s := NewOAuthService(cfg)
	if client != nil {
		s.client = client
	}
	s.googleTokenInfoURL = tokenInfoURL
	s.appleKeysURL = keysURL
	return s
}

// VerifyProviderToken validates the ID token with the named provider and
// returns the identity it asserts. The email claim is required: an
// account cannot be keyed on a subject alone because the conflict check
// against local credential accounts runs on email.
func (s *OAuthService) VerifyProviderToken(ctx context.Context, provider, idToken string) (*ProviderIdentity, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyProviderToken")

	switch strings.ToUpper(provider) {
	case constants.ProviderGoogle:
		return s.verifyGoogle(ctx, idToken)
	case constants.ProviderApple:
		return s.verifyApple(ctx, idToken)
	default:
		return nil, apperrors.ErrUnknownProvider
	}
}

func (s *OAuthService) verifyGoogle(ctx context.Context, idToken string) (*ProviderIdentity, error) {
	if s.cfg.GoogleClientID == "" {
		return nil, apperrors.ErrProviderNotConfigured
	}

	endpoint := s.googleTokenInfoURL
	if endpoint == "" {
		endpoint = googleTokenInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorWithContext(ctx, "Google tokeninfo request failed").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken,
			fmt.Errorf("tokeninfo returned status %d", resp.StatusCode))
	}

	var info struct {
		Iss           string `json:"iss"`
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken, err)
	}

	if info.Iss != "accounts.google.com" && info.Iss != "https://accounts.google.com" {
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken,
			fmt.Errorf("unexpected issuer %q", info.Iss))
	}
	if info.Aud != s.cfg.GoogleClientID {
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken,
			fmt.Errorf("token audience mismatch"))
	}
	if info.Email == "" {
		return nil, apperrors.ErrMissingProviderEmail
	}

	return &ProviderIdentity{
		Provider: constants.ProviderGoogle,
		Subject:  info.Sub,
		Email:    strings.ToLower(info.Email),
		Name:     info.Name,
	}, nil
}

func (s *OAuthService) verifyApple(ctx context.Context, idToken string) (*ProviderIdentity, error) {
	if s.cfg.AppleClientID == "" {
		return nil, apperrors.ErrProviderNotConfigured
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			kid, _ := t.Header["kid"].(string)
			return s.appleKey(ctx, kid)
		},
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(s.cfg.AppleClientID),
	)
	if err != nil {
		logger.WarnWithContext(ctx, "Apple ID token rejected").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidProviderToken, err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, apperrors.ErrMissingProviderEmail
	}

	// Apple carries no name claim in the ID token.
	return &ProviderIdentity{
		Provider: constants.ProviderApple,
		Subject:  sub,
		Email:    strings.ToLower(email),
	}, nil
}

// appleKey returns Apple's signing key for the given kid, refreshing the
// cached JWKS when the key is unknown or the cache is stale.
func (s *OAuthService) appleKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.appleKeys[kid]; ok && time.Since(s.appleKeysTime) < appleKeysCacheTTL {
		return key, nil
	}

	endpoint := s.appleKeysURL
	if endpoint == "" {
		endpoint = appleKeysURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch apple keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apple keys endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode apple keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}

	s.appleKeys = keys
	s.appleKeysTime = time.Now()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("no apple key with kid %q", kid)
	}
	return key, nil
}
