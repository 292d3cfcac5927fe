package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/utils"
)

// Claims are the platform JWT claims carrying tenant identity. Tokens
// are issued by the external auth service; this middleware only
// verifies and extracts.
type Claims struct {
	OrganizationID int64  `json:"org_id"`
	UserID         int64  `json:"user_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(secret, issuer string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
	}
}

// RequireAuth validates the bearer token and places the CallerContext
// in the request context. Every governance route sits behind this.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		caller := models.CallerContext{
			OrganizationID: claims.OrganizationID,
			UserID:         claims.UserID,
			Role:           claims.Role,
		}
		if !caller.Valid() {
			m.logger.Warn("token lacks tenant identity",
				zap.String("request_id", requestID),
				zap.Int64("org_id", claims.OrganizationID))
			_ = utils.WriteForbidden(w, "Invalid organization in token", nil)
			return
		}

		ctx = WithCaller(ctx, caller)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("org_id", caller.OrganizationID),
			zap.Int64("user_id", caller.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route to callers holding the given role
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := GetCallerFromContext(r.Context())
			if caller.Role != role {
				m.logger.Warn("insufficient role",
					zap.String("required", role),
					zap.String("actual", caller.Role),
					zap.Int64("user_id", caller.UserID))
				_ = utils.WriteForbidden(w, "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validateToken parses and verifies an HMAC-signed platform token
func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// extractToken pulls the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
