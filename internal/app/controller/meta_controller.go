package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
)

// MetaController エリア/都道府県/市区町村/カテゴリの語彙を返す
type MetaController struct {
	storeService service.StoreService
}

func NewMetaController(storeService service.StoreService) *MetaController {
	return &MetaController{storeService: storeService}
}

func (ctrl *MetaController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *MetaController) GetAreas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"areas":            service.Areas,
		"area_prefectures": service.AreaPrefectures,
	})
}

func (ctrl *MetaController) GetPrefectures(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prefectures": service.Prefectures})
}

func (ctrl *MetaController) GetCities(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	prefecture := strings.TrimSpace(c.Query("prefecture"))

	cities, err := ctrl.storeService.ListCities(prefecture)
	if err != nil {
		// テーブル未作成時は空リストを返す
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, gin.H{"cities": []string{}})
			return
		}
		log.Error("Failed to list cities", err, map[string]interface{}{
			"prefecture": prefecture,
		})
		apperrors.InternalError(c, "")
		return
	}
	if cities == nil {
		cities = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

func (ctrl *MetaController) GetCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	// 保存済みデータから抽出した語彙は補助情報として添える
	vocabulary, err := ctrl.storeService.CategoryVocabulary()
	if err != nil && !apperrors.IsUndefinedTable(err) {
		log.Warn("Failed to build category vocabulary", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if vocabulary == nil {
		vocabulary = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"categories":      service.AllCategories,
		"category_groups": service.CategoryGroups,
		"db_categories":   vocabulary,
	})
}

// GetSavedLists 保存済みリスト取得 (未実装のプレースホルダ)
func (ctrl *MetaController) GetSavedLists(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lists": []interface{}{}})
}
