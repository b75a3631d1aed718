package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/deskwatch/backend/internal/cache"
	"github.com/deskwatch/backend/internal/config"
	"github.com/deskwatch/backend/internal/db"
	"github.com/deskwatch/backend/internal/http/handlers"
	"github.com/deskwatch/backend/internal/http/middleware"
	"github.com/deskwatch/backend/internal/service"

	_ "github.com/deskwatch/backend/docs"
)

func Router(cfg config.Config, dashboards *service.DashboardService, store *db.Store, cacheInst *cache.Cache, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Dashboards: dashboards,
		Store:      store,
		Cache:      cacheInst,
		Validator:  validator.New(),
		Logger:     logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.Dashboard)
		api.GET("/agents", h.Agents)
		api.GET("/runs/latest", h.RunsLatest)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/cache/clear", h.CacheClear)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
