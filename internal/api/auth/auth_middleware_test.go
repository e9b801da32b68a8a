package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/types"
)

var testJWTConfig = config.JWTConfig{
	SecretKey: "test-secret",
	Issuer:    "finance-hub-test",
	Audience:  "finance-hub-api",
}

func signTestToken(t *testing.T, userID uuid.UUID, cfg config.JWTConfig, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		Email:  "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Subject:   userID.String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)
	return token
}

func protectedProbe() (http.Handler, *bool) {
	reached := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), &reached
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()
	middleware := Authenticate(logger, testJWTConfig)

	t.Run("valid token passes and injects user id", func(t *testing.T) {
		var gotUserID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, _ = GetUserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, testJWTConfig, time.Hour))
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID.String(), gotUserID)
	})

	t.Run("missing header yields 401", func(t *testing.T) {
		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("malformed header yields 401", func(t *testing.T) {
		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Token abc123")
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("expired token yields 401", func(t *testing.T) {
		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, testJWTConfig, -time.Minute))
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("wrong issuer yields 401", func(t *testing.T) {
		badIssuer := testJWTConfig
		badIssuer.Issuer = "someone-else"

		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, badIssuer, time.Hour))
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("wrong signature yields 401", func(t *testing.T) {
		badKey := testJWTConfig
		badKey.SecretKey = "other-secret"

		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, badKey, time.Hour))
		rec := httptest.NewRecorder()

		middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()

	authHeader := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, testJWTConfig, time.Hour))
	}
	authenticate := Authenticate(logger, testJWTConfig)

	t.Run("admin reaches admin route", func(t *testing.T) {
		roles := new(MockRoleStore)
		roles.On("ListUserRoles", mock.Anything, userID).
			Return([]types.UserRole{{UserID: userID, Role: types.RoleAdmin}}, nil).Once()

		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		authHeader(req)
		rec := httptest.NewRecorder()

		authenticate(RequireRole(logger, roles, types.RoleAdmin)(next)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})

	t.Run("non-admin gets 403 and no handler output", func(t *testing.T) {
		roles := new(MockRoleStore)
		roles.On("ListUserRoles", mock.Anything, userID).
			Return([]types.UserRole{{UserID: userID, Role: types.RoleUser}}, nil).Once()

		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		authHeader(req)
		rec := httptest.NewRecorder()

		authenticate(RequireRole(logger, roles, types.RoleAdmin)(next)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Access restricted to admin role")
		assert.False(t, *reached)
	})

	t.Run("unauthenticated request never reaches the role check", func(t *testing.T) {
		roles := new(MockRoleStore)

		next, reached := protectedProbe()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		rec := httptest.NewRecorder()

		authenticate(RequireRole(logger, roles, types.RoleAdmin)(next)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
		roles.AssertNotCalled(t, "ListUserRoles", mock.Anything, mock.Anything)
	})
}
