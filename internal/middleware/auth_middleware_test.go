package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authMW := NewAuthMiddleware(testSecret)
	router := gin.New()
	router.GET("/protected", authMW.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey)})
	})
	router.GET("/admin", authMW.Authenticate(), authMW.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func issueToken(t *testing.T, userType string, expiry time.Duration) string {
	t.Helper()
	token, err := util.GenerateToken("user-1", "P-0001", userType, testSecret, expiry)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	router := setupAuthRouter(t)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "有効なトークン",
			authHeader: "Bearer " + issueToken(t, model.UserTypePartner, time.Hour),
			wantStatus: http.StatusOK,
		},
		{
			name:       "ヘッダーなし",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Bearer形式でない",
			authHeader: "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "期限切れトークン",
			authHeader: "Bearer " + issueToken(t, model.UserTypePartner, -time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "改ざんトークン",
			authHeader: "Bearer invalid.token.value",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	router := setupAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.UserTypePartner, time.Hour))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.UserTypeAdmin, time.Hour))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
