package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type LoginRequest struct {
	PartnerCode string `json:"partner_code" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "パートナーコードとパスワードを入力してください")
		return
	}

	user, token, err := ctrl.authService.Login(req.PartnerCode, req.Password)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, err.Error())
		case service.ErrAccountDisabled:
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthAccountDisabled, err.Error())
		default:
			log.Error("Login failed", err, map[string]interface{}{
				"partner_code": req.PartnerCode,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}
