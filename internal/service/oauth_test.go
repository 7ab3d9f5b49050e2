package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/famvault/auth-service/config"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenInfo serves Google's tokeninfo responses keyed by the
// presented id_token.
func fakeTokenInfo(t *testing.T, responses map[string]map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("id_token")
		body, ok := responses[token]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func newTestOAuthService(t *testing.T, server *httptest.Server) *OAuthService {
	t.Helper()
	cfg := config.OAuthConfig{
		GoogleClientID: "client-123.apps.googleusercontent.com",
		AppleClientID:  "com.famvault.app",
	}
	return NewOAuthServiceWithEndpoints(cfg, server.Client(), server.URL, server.URL)
}

func TestOAuthService_VerifyGoogle(t *testing.T) {
	server := fakeTokenInfo(t, map[string]map[string]string{
		"good-token": {
			"iss":            "https://accounts.google.com",
			"aud":            "client-123.apps.googleusercontent.com",
			"sub":            "10987654321",
			"email":          "Alice@Example.com",
			"email_verified": "true",
			"name":           "Alice Example",
		},
	})
	defer server.Close()

	svc := newTestOAuthService(t, server)

	identity, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "good-token")
	require.NoError(t, err)
	assert.Equal(t, "GOOGLE", identity.Provider)
	assert.Equal(t, "10987654321", identity.Subject)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice Example", identity.Name)
}

func TestOAuthService_VerifyGoogle_ProviderCaseInsensitive(t *testing.T) {
	server := fakeTokenInfo(t, map[string]map[string]string{
		"good-token": {
			"iss":   "accounts.google.com",
			"aud":   "client-123.apps.googleusercontent.com",
			"sub":   "42",
			"email": "bob@example.com",
		},
	})
	defer server.Close()

	svc := newTestOAuthService(t, server)

	identity, err := svc.VerifyProviderToken(context.Background(), "google", "good-token")
	require.NoError(t, err)
	assert.Equal(t, "GOOGLE", identity.Provider)
}

func TestOAuthService_VerifyGoogle_RejectedToken(t *testing.T) {
	server := fakeTokenInfo(t, nil)
	defer server.Close()

	svc := newTestOAuthService(t, server)

	_, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "bogus")
	assert.ErrorIs(t, err, apperrors.ErrInvalidProviderToken)
}

func TestOAuthService_VerifyGoogle_AudienceMismatch(t *testing.T) {
	server := fakeTokenInfo(t, map[string]map[string]string{
		"stolen-token": {
			"iss":   "https://accounts.google.com",
			"aud":   "someone-elses-client-id",
			"sub":   "42",
			"email": "alice@example.com",
		},
	})
	defer server.Close()

	svc := newTestOAuthService(t, server)

	_, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "stolen-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidProviderToken)
}

func TestOAuthService_VerifyGoogle_BadIssuer(t *testing.T) {
	server := fakeTokenInfo(t, map[string]map[string]string{
		"forged-token": {
			"iss":   "https://evil.example.com",
			"aud":   "client-123.apps.googleusercontent.com",
			"sub":   "42",
			"email": "alice@example.com",
		},
	})
	defer server.Close()

	svc := newTestOAuthService(t, server)

	_, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "forged-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidProviderToken)
}

func TestOAuthService_VerifyGoogle_MissingEmail(t *testing.T) {
	server := fakeTokenInfo(t, map[string]map[string]string{
		"no-email-token": {
			"iss": "https://accounts.google.com",
			"aud": "client-123.apps.googleusercontent.com",
			"sub": "42",
		},
	})
	defer server.Close()

	svc := newTestOAuthService(t, server)

	_, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "no-email-token")
	assert.ErrorIs(t, err, apperrors.ErrMissingProviderEmail)
}

func TestOAuthService_UnknownProvider(t *testing.T) {
	svc := NewOAuthService(config.OAuthConfig{GoogleClientID: "x", AppleClientID: "y"})

	_, err := svc.VerifyProviderToken(context.Background(), "FACEBOOK", "token")
	assert.ErrorIs(t, err, apperrors.ErrUnknownProvider)
}

func TestOAuthService_ProviderNotConfigured(t *testing.T) {
	svc := NewOAuthService(config.OAuthConfig{})

	_, err := svc.VerifyProviderToken(context.Background(), "GOOGLE", "token")
	assert.ErrorIs(t, err, apperrors.ErrProviderNotConfigured)

	_, err = svc.VerifyProviderToken(context.Background(), "APPLE", "token")
	assert.ErrorIs(t, err, apperrors.ErrProviderNotConfigured)
}
