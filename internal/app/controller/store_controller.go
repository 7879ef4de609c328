package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
	"github.com/infratech-maker/apclo-partner-crm/pkg/redis"
)

type StoreController struct {
	storeService service.StoreService
}

func NewStoreController(storeService service.StoreService) *StoreController {
	return &StoreController{storeService: storeService}
}

// parseListOptions 一覧/エクスポートで共通のクエリパラメータを読み取る
func parseListOptions(c *gin.Context) service.StoreListOptions {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "100"))
	if err != nil || perPage < 1 {
		perPage = 100
	}

	return service.StoreListOptions{
		Search:      c.Query("search"),
		SearchMode:  c.DefaultQuery("search_mode", "AND"),
		MatchType:   c.DefaultQuery("match_type", "partial"),
		Prefectures: c.QueryArray("prefectures"),
		Cities:      c.QueryArray("cities"),
		Categories:  c.QueryArray("categories"),
		DataSources: c.QueryArray("data_sources"),
		Page:        page,
		PerPage:     perPage,
	}
}

func (ctrl *StoreController) ListStores(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	opts := parseListOptions(c)

	result, err := ctrl.storeService.ListStores(opts)
	if err != nil {
		// テーブル未作成時は空リストを返す
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, service.StoreListResult{
				Stores:  []model.Store{},
				Page:    opts.Page,
				PerPage: opts.PerPage,
			})
			return
		}
		log.Error("Failed to list stores", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	if result.Stores == nil {
		result.Stores = []model.Store{}
	}
	log.Info("Stores listed", map[string]interface{}{
		"count": len(result.Stores),
		"total": result.Total,
	})
	c.JSON(http.StatusOK, result)
}

func (ctrl *StoreController) GetStore(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	storeID := c.Param("store_id")

	store, err := ctrl.storeService.GetStoreByID(storeID)
	if err != nil {
		if err == service.ErrStoreNotFound || apperrors.IsUndefinedTable(err) {
			apperrors.NotFound(c, apperrors.StoreNotFound, "店舗が見つかりません")
			return
		}
		log.Error("Failed to get store", err, map[string]interface{}{
			"store_id": storeID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, store)
}

func (ctrl *StoreController) GetStats(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stats, err := ctrl.storeService.GetStats()
	if err != nil {
		// テーブル未作成時はゼロ埋めの統計を返す
		if apperrors.IsUndefinedTable(err) {
			c.JSON(http.StatusOK, &service.StoreStats{
				CityStats:       map[string]int64{},
				PrefectureStats: map[string]int64{},
				AreaStats:       map[string]int64{},
			})
			return
		}
		log.Error("Failed to compute stats", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetEnrichProgress 補完ジョブの進捗スナップショットを返す
func (ctrl *StoreController) GetEnrichProgress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	progress, err := redis.GetEnrichProgress(c.Request.Context())
	if err != nil {
		log.Error("Failed to read enrich progress", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	if progress == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running":  true,
		"progress": progress,
	})
}
