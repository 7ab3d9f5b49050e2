package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/internal/model"
	"github.com/famvault/auth-service/internal/repository"
	"github.com/famvault/auth-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupAuthTest(t *testing.T) (*gin.Engine, *service.TokenService, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.RefreshToken{}))

	userRepo := repository.NewUserRepository(db)
	tokenService := service.NewTokenService(config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "famvault-auth",
		Audience:   "famvault-api",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, userRepo, repository.NewRefreshTokenRepository(db))

	mw := NewAuthMiddleware(tokenService, userRepo)

	engine := gin.New()
	engine.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(constants.GinKeyUserID),
			"email":   c.GetString(constants.GinKeyUserEmail),
		})
	})
	engine.GET("/parents-only", mw.RequireAuth(), mw.RequireRole(constants.RoleParent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return engine, tokenService, db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: "Test", Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func doGet(engine *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set(constants.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_MissingOrMalformedHeader(t *testing.T) {
	engine, _, _ := setupAuthTest(t)

	for _, header := range []string{
		"",
		"Bearer",
		"Basic dXNlcjpwYXNz",
		"Bearer ",
	} {
		rec := doGet(engine, "/protected", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	engine, _, _ := setupAuthTest(t)

	rec := doGet(engine, "/protected", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	engine, tokenService, db := setupAuthTest(t)
	user := createUser(t, db, "alice@example.com", constants.RoleParent)

	pair, err := tokenService.GenerateTokenPair(context.Background(), user)
	require.NoError(t, err)

	rec := doGet(engine, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	engine, tokenService, db := setupAuthTest(t)
	user := createUser(t, db, "alice@example.com", constants.RoleParent)

	pair, err := tokenService.GenerateTokenPair(context.Background(), user)
	require.NoError(t, err)

	rec := doGet(engine, "/protected", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	engine, tokenService, db := setupAuthTest(t)
	user := createUser(t, db, "alice@example.com", constants.RoleParent)

	pair, err := tokenService.GenerateTokenPair(context.Background(), user)
	require.NoError(t, err)

	require.NoError(t, db.Delete(user).Error)

	rec := doGet(engine, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	engine, tokenService, db := setupAuthTest(t)

	parent := createUser(t, db, "parent@example.com", constants.RoleParent)
	child := createUser(t, db, "child@example.com", constants.RoleChild)

	parentPair, err := tokenService.GenerateTokenPair(context.Background(), parent)
	require.NoError(t, err)
	childPair, err := tokenService.GenerateTokenPair(context.Background(), child)
	require.NoError(t, err)

	rec := doGet(engine, "/parents-only", "Bearer "+parentPair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(engine, "/parents-only", "Bearer "+childPair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FORBIDDEN"`)
}
