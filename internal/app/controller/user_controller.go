package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

type UserRequest struct {
	PartnerCode  string `json:"partner_code"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	UserType     string `json:"user_type"`
	IsAgency     *bool  `json:"is_agency"`
	IsActive     *bool  `json:"is_active"`
	Notes        string `json:"notes"`
}

func (r UserRequest) toInput(createdBy string) service.UserInput {
	return service.UserInput{
		PartnerCode:  r.PartnerCode,
		Password:     r.Password,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Organization: r.Organization,
		UserType:     r.UserType,
		IsAgency:     r.IsAgency,
		IsActive:     r.IsActive,
		CreatedBy:    createdBy,
		Notes:        r.Notes,
	}
}

func (ctrl *UserController) ListUsers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err == nil {
			isActive = &parsed
		}
	}

	users, err := ctrl.userService.ListUsers(c.Query("user_type"), isActive)
	if err != nil {
		// テーブル未作成時は空リストを返す
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, gin.H{"users": []model.User{}})
			return
		}
		log.Error("Failed to list users", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	if users == nil {
		users = []model.User{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (ctrl *UserController) CreateUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "リクエスト形式が正しくありません")
		return
	}

	user, err := ctrl.userService.CreateUser(req.toInput(c.GetString(middleware.PartnerCodeKey)))
	if err != nil {
		switch err {
		case service.ErrRequiredFieldEmpty:
			apperrors.BadRequest(c, apperrors.ValidationRequired, err.Error())
		case service.ErrPartnerCodeExists:
			apperrors.BadRequest(c, apperrors.UserPartnerCodeExists, err.Error())
		default:
			log.Error("Failed to create user", err, map[string]interface{}{
				"partner_code": req.PartnerCode,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (ctrl *UserController) UpdateUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("user_id")

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "リクエスト形式が正しくありません")
		return
	}

	user, err := ctrl.userService.UpdateUser(userID, req.toInput(""))
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			apperrors.NotFound(c, apperrors.UserNotFound, err.Error())
		case service.ErrPartnerCodeExists:
			apperrors.BadRequest(c, apperrors.UserPartnerCodeExists, err.Error())
		default:
			log.Error("Failed to update user", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser 論理削除。is_activeを落とすだけでレコードは残す。
func (ctrl *UserController) DeleteUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("user_id")

	if err := ctrl.userService.DeactivateUser(userID); err != nil {
		if err == service.ErrUserNotFound {
			apperrors.NotFound(c, apperrors.UserNotFound, err.Error())
			return
		}
		log.Error("Failed to deactivate user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ユーザーを無効化しました"})
}
