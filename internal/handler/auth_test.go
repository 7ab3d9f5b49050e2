package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/handler"
	"github.com/famvault/auth-service/internal/middleware"
	"github.com/famvault/auth-service/internal/model"
	"github.com/famvault/auth-service/internal/repository"
	"github.com/famvault/auth-service/internal/router"
	"github.com/famvault/auth-service/internal/service"
	"github.com/famvault/auth-service/pkg/storage"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopMailer struct{}

func (nopMailer) SendWelcomeEmail(to, name, role string) error { return nil }
func (nopMailer) SendAdminReviewEmail(applicantName, applicantEmail string, idImage []byte, idImageName string) error {
	return nil
}
func (nopMailer) SendPasswordResetEmail(to, name, resetLink string, ttl time.Duration) error {
	return nil
}

func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.OAuthAccount{},
		&model.VerificationRequest{},
		&model.ParentProfile{},
	))

	mr := miniredis.RunT(t)
	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "famvault-test",
			Environment: "development",
			Port:        "0",
			BaseURL:     "http://localhost:8080",
		},
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			Issuer:     "famvault-auth",
			Audience:   "famvault-api",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		OAuth: config.OAuthConfig{
			GoogleClientID: "client-123.apps.googleusercontent.com",
			ResetTokenTTL:  time.Hour,
		},
		Storage: config.StorageConfig{
			Driver:    "local",
			LocalPath: t.TempDir(),
			LocalURL:  "http://localhost:8080/files",
		},
		RateLimit: config.RateLimitConfig{Request: 1000, Duration: 60},
	}

	store, err := storage.NewStorage(cfg.Storage)
	require.NoError(t, err)

	// Stands in for the Google tokeninfo endpoint so the oauth route is
	// exercisable end to end.
	oauthSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "provider-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"iss":   "https://accounts.google.com",
			"aud":   "client-123.apps.googleusercontent.com",
			"sub":   "sub-1",
			"email": "oauth@example.com",
			"name":  "OAuth User",
		})
	}))
	t.Cleanup(oauthSrv.Close)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	passwordService, err := service.NewPasswordService()
	require.NoError(t, err)
	tokenService := service.NewTokenService(cfg.JWT, userRepo, tokenRepo)
	authService := service.NewAuthService(
		cfg, db,
		userRepo,
		repository.NewOAuthAccountRepository(db),
		repository.NewVerificationRequestRepository(db),
		repository.NewParentProfileRepository(db),
		repository.NewResetTokenStore(redisClient),
		passwordService, tokenService,
		service.NewOAuthServiceWithEndpoints(cfg.OAuth, oauthSrv.Client(), oauthSrv.URL, oauthSrv.URL),
		store, nopMailer{},
	)

	validMw := middleware.NewValidationMiddleware()
	authMw := middleware.NewAuthMiddleware(tokenService, userRepo)
	authHandler := handler.NewAuthHandler(authService, validMw)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	return router.NewRouter(authHandler, healthHandler, validMw, authMw, cfg).SetupRoutes()
}

func postJSON(engine *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func signupChild(t *testing.T, engine *gin.Engine, email string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("role", "CHILD"))
	require.NoError(t, form.WriteField("name", "Kid Example"))
	require.NoError(t, form.WriteField("email", email))
	require.NoError(t, form.WriteField("password", "kid password 123"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, true, envelope["ok"])
	return envelope["data"].(map[string]any)
}

func TestSignupEndpoint_Child(t *testing.T) {
	engine := setupTestServer(t)

	data := signupChild(t, engine, "kid@example.com")
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])
	assert.Equal(t, "PENDING", data["verification_status"])

	user := data["user"].(map[string]any)
	assert.Equal(t, "kid@example.com", user["email"])
	assert.Equal(t, "CHILD", user["role"])
}

func TestSignupEndpoint_ParentWithoutImage(t *testing.T) {
	engine := setupTestServer(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("role", "PARENT"))
	require.NoError(t, form.WriteField("name", "Alice Example"))
	require.NoError(t, form.WriteField("email", "alice@example.com"))
	require.NoError(t, form.WriteField("password", "correct horse battery staple"))
	require.NoError(t, form.WriteField("country", "DE"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UNSUPPORTED_MEDIA"`)
}

func TestSignupEndpoint_ValidationDetails(t *testing.T) {
	engine := setupTestServer(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("role", "WIZARD"))
	require.NoError(t, form.WriteField("name", "A"))
	require.NoError(t, form.WriteField("email", "not-an-email"))
	require.NoError(t, form.WriteField("password", "short"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION_FAILED"`)
	assert.Contains(t, rec.Body.String(), "role must be PARENT or CHILD")
	assert.Contains(t, rec.Body.String(), "password must be at least 8 characters")
}

func TestLoginEndpoint(t *testing.T) {
	engine := setupTestServer(t)
	signupChild(t, engine, "kid@example.com")

	rec := postJSON(engine, "/api/v1/auth/login", map[string]string{
		"email":    "kid@example.com",
		"password": "kid password 123",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	// Wrong password and unknown email answer identically.
	wrongPassword := postJSON(engine, "/api/v1/auth/login", map[string]string{
		"email":    "kid@example.com",
		"password": "wrong password",
	}, nil)
	unknownEmail := postJSON(engine, "/api/v1/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "wrong password",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Contains(t, wrongPassword.Body.String(), `"UNAUTHORIZED"`)
}

func TestLoginEndpoint_MalformedBody(t *testing.T) {
	engine := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION_FAILED"`)
}

func TestRefreshEndpoint_Rotation(t *testing.T) {
	engine := setupTestServer(t)
	data := signupChild(t, engine, "kid@example.com")
	refreshToken := data["refresh_token"].(string)

	rec := postJSON(engine, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	rotated := envelope["data"].(map[string]any)["refresh_token"].(string)
	assert.NotEqual(t, refreshToken, rotated)

	// The spent token gets a uniform 401.
	replay := postJSON(engine, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Contains(t, replay.Body.String(), `"UNAUTHORIZED"`)
	assert.NotContains(t, replay.Body.String(), "REVOKED")
}

func TestOAuthEndpoint_AlwaysAnswersOK(t *testing.T) {
	engine := setupTestServer(t)

	body := map[string]string{"provider": "GOOGLE", "id_token": "provider-token"}

	first := postJSON(engine, "/api/v1/auth/oauth", body, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]any)
	assert.Equal(t, true, data["is_new_user"])
	assert.NotEmpty(t, data["access_token"])

	// The repeat login over the fresh link is also a plain 200, with the
	// body carrying the distinction.
	second := postJSON(engine, "/api/v1/auth/oauth", body, nil)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope["data"].(map[string]any)["is_new_user"])
}

func TestMeEndpoint(t *testing.T) {
	engine := setupTestServer(t)
	data := signupChild(t, engine, "kid@example.com")
	accessToken := data["access_token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kid@example.com")

	// No token, no profile.
	anon := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	anonRec := httptest.NewRecorder()
	engine.ServeHTTP(anonRec, anon)
	assert.Equal(t, http.StatusUnauthorized, anonRec.Code)
}

func TestLogoutEndpoint_AlwaysSucceeds(t *testing.T) {
	engine := setupTestServer(t)
	data := signupChild(t, engine, "kid@example.com")

	for _, body := range []map[string]string{
		{"refresh_token": data["refresh_token"].(string)},
		{"refresh_token": data["refresh_token"].(string)}, // replay
		{"refresh_token": "never-issued"},
		{},
	} {
		rec := postJSON(engine, "/api/v1/auth/logout", body, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Logged out successfully")
	}
}

func TestForgotPasswordEndpoint_UniformResponse(t *testing.T) {
	engine := setupTestServer(t)
	signupChild(t, engine, "kid@example.com")

	known := postJSON(engine, "/api/v1/auth/forgot-password", map[string]string{
		"email": "kid@example.com",
	}, nil)
	unknown := postJSON(engine, "/api/v1/auth/forgot-password", map[string]string{
		"email": "ghost@example.com",
	}, nil)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())
}

func TestChangePasswordEndpoint(t *testing.T) {
	engine := setupTestServer(t)
	data := signupChild(t, engine, "kid@example.com")
	accessToken := data["access_token"].(string)

	rec := postJSON(engine, "/api/v1/auth/change-password", map[string]string{
		"current_password": "kid password 123",
		"new_password":     "a fresh strong password",
	}, map[string]string{"Authorization": "Bearer " + accessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old refresh token was revoked by the change.
	replay := postJSON(engine, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": data["refresh_token"].(string),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)

	login := postJSON(engine, "/api/v1/auth/login", map[string]string{
		"email":    "kid@example.com",
		"password": "a fresh strong password",
	}, nil)
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestHealthEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestRateLimit(t *testing.T) {
	engine := setupTestServer(t)

	// The shared limiter admits Request hits per window; burn through
	// them on the cheapest endpoint and expect a 429.
	var last *httptest.ResponseRecorder
	for i := 0; i < 1001; i++ {
		last = postJSON(engine, "/api/v1/auth/logout", map[string]string{}, nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), `"RATE_LIMITED"`)
}
