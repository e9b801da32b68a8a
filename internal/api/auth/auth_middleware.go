package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/api"
	"github.com/financehub/finance-hub/internal/types"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Authenticate validates the bearer JWT and injects the user id into the
// request context. Requests without a valid token get 401.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	secretKey := []byte(jwtCfg.SecretKey)
	if len(secretKey) == 0 {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}
			tokenString := headerParts[1]

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secretKey, nil
			})

			if err != nil {
				l.WarnContext(ctx, "Token parsing/validation failed", slog.Any("error", err))
				errMsg := "Invalid or expired token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					errMsg = "Token has expired"
				} else if errors.Is(err, jwt.ErrTokenMalformed) {
					errMsg = "Malformed token"
				} else if errors.Is(err, jwt.ErrSignatureInvalid) {
					errMsg = "Invalid token signature"
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, errMsg)
				return
			}

			if !token.Valid {
				l.WarnContext(ctx, "Token marked as invalid or claims are nil")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			if claims.ExpiresAt == nil || time.Now().Unix() > claims.ExpiresAt.Unix() {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Token has expired")
				return
			}
			if claims.Issuer != jwtCfg.Issuer {
				l.WarnContext(ctx, "Token issuer mismatch", slog.String("expected", jwtCfg.Issuer), slog.String("actual", claims.Issuer))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
			if jwtCfg.Audience != "" && !api.VerifyAudience(claims.Audience, jwtCfg.Audience) {
				l.WarnContext(ctx, "Token audience mismatch", slog.String("expected", jwtCfg.Audience))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token audience")
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the user id injected by Authenticate.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// RequireRole gates a route group on role membership. Runs after
// Authenticate; a missing role yields a restricted-access 403, never a
// partial render.
func RequireRole(logger *slog.Logger, roles RoleStore, required types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userIDStr, ok := GetUserIDFromContext(ctx)
			if !ok || userIDStr == "" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid user identity")
				return
			}

			userRoles, err := roles.ListUserRoles(ctx, userID)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to resolve roles", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Cannot determine role membership")
				return
			}

			session := &types.Session{User: &types.UserAuth{ID: userID}, Roles: userRoles}
			if !session.HasRole(required) {
				logger.WarnContext(ctx, "Role check failed",
					slog.String("required_role", string(required)),
					slog.String("userID", userIDStr),
				)
				api.ErrorResponse(w, r, http.StatusForbidden, "Access restricted to "+string(required)+" role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
