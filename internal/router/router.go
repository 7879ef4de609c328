package router

import (
	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/controller"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
)

type Router struct {
	authController   *controller.AuthController
	metaController   *controller.MetaController
	storeController  *controller.StoreController
	exportController *controller.ExportController
	userController   *controller.UserController
	statusController *controller.StatusController
	authMiddleware   *middleware.AuthMiddleware
	config           *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	metaController *controller.MetaController,
	storeController *controller.StoreController,
	exportController *controller.ExportController,
	userController *controller.UserController,
	statusController *controller.StatusController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:   authController,
		metaController:   metaController,
		storeController:  storeController,
		exportController: exportController,
		userController:   userController,
		statusController: statusController,
		authMiddleware:   authMiddleware,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	api := router.Group("/api")
	{
		api.GET("/health", r.metaController.Health)
		api.GET("/areas", r.metaController.GetAreas)
		api.GET("/prefectures", r.metaController.GetPrefectures)
		api.GET("/cities", r.metaController.GetCities)
		api.GET("/categories", r.metaController.GetCategories)

		api.GET("/stats", r.storeController.GetStats)
		api.GET("/stores", r.storeController.ListStores)
		api.GET("/stores/:store_id", r.storeController.GetStore)
		api.GET("/enrich/progress", r.storeController.GetEnrichProgress)

		api.GET("/export/csv", r.exportController.ExportCSV)
		api.GET("/export/json", r.exportController.ExportJSON)
		api.GET("/export/excel", r.exportController.ExportExcel)

		api.POST("/login", r.authController.Login)
		api.POST("/auth/login", r.authController.Login) // 旧フロントエンド互換の別名

		// 担当者の対応ステータスはログイン必須
		api.POST("/stores/:store_id/status",
			r.authMiddleware.Authenticate(),
			r.statusController.SetStatus,
		)
		api.GET("/partner/statuses",
			r.authMiddleware.Authenticate(),
			r.statusController.ListMyStatuses,
		)
		api.GET("/partner/saved-lists",
			r.authMiddleware.Authenticate(),
			r.metaController.GetSavedLists,
		)

		admin := api.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireAdmin())
		{
			admin.GET("/users", r.userController.ListUsers)
			admin.GET("/stores/:store_id/statuses", r.statusController.ListStoreStatuses)
			admin.POST("/users", r.userController.CreateUser)
			admin.PUT("/users/:user_id", r.userController.UpdateUser)
			admin.DELETE("/users/:user_id", r.userController.DeleteUser)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
