package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
)

// StatusController 営業担当者ごとの店舗対応ステータス
type StatusController struct {
	statusRepo repository.StatusRepository
}

func NewStatusController(statusRepo repository.StatusRepository) *StatusController {
	return &StatusController{statusRepo: statusRepo}
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus ログイン中の担当者の対応ステータスを店舗に記録する
func (ctrl *StatusController) SetStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	storeID := c.Param("store_id")
	repID := c.GetString(middleware.UserIDKey)

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "statusは必須です")
		return
	}

	status := &model.StoreStatus{
		RepID:   repID,
		StoreID: storeID,
		Status:  req.Status,
	}
	if err := ctrl.statusRepo.Set(status); err != nil {
		log.Error("Failed to set store status", err, map[string]interface{}{
			"store_id": storeID,
			"rep_id":   repID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListMyStatuses ログイン中の担当者が記録したステータス一覧
func (ctrl *StatusController) ListMyStatuses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	repID := c.GetString(middleware.UserIDKey)

	statuses, err := ctrl.statusRepo.FindByRep(repID)
	if err != nil {
		// テーブル未作成時は空リストを返す
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, gin.H{"statuses": []model.StoreStatus{}})
			return
		}
		log.Error("Failed to list store statuses", err, map[string]interface{}{
			"rep_id": repID,
		})
		apperrors.InternalError(c, "")
		return
	}
	if statuses == nil {
		statuses = []model.StoreStatus{}
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// ListStoreStatuses 管理者向け。店舗に対する全担当者の対応ステータス一覧。
func (ctrl *StatusController) ListStoreStatuses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	storeID := c.Param("store_id")

	statuses, err := ctrl.statusRepo.FindByStore(storeID)
	if err != nil {
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, gin.H{"statuses": []model.StoreStatus{}})
			return
		}
		log.Error("Failed to list statuses for store", err, map[string]interface{}{
			"store_id": storeID,
		})
		apperrors.InternalError(c, "")
		return
	}
	if statuses == nil {
		statuses = []model.StoreStatus{}
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}
