package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/pkg/util"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	PartnerCodeKey = "partner_code"
	UserTypeKey    = "user_type"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "認証形式が正しくありません")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "ログインの有効期限が切れました")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "認証トークンが無効です")
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(PartnerCodeKey, claims.PartnerCode)
		c.Set(UserTypeKey, claims.UserType)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id":      claims.UserID,
			"partner_code": claims.PartnerCode,
			"user_type":    claims.UserType,
		})

		c.Next()
	}
}

// RequireAdmin allows only admin users. Must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := c.GetString(UserTypeKey)
		if userType != model.UserTypeAdmin {
			GetLoggerFromContext(c).Warn("Admin-only endpoint accessed by non-admin", map[string]interface{}{
				"path":      c.Request.URL.Path,
				"user_type": userType,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzAdminOnly, "管理者のみ実行できます")
			c.Abort()
			return
		}
		c.Next()
	}
}
