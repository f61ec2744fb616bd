package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/handler"
	"github.com/jengzang/crime-lisa-go/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles the HTTP handlers mounted by the router
type Handlers struct {
	Lisa      *handler.LisaHandler
	Variation *handler.VariationHandler
	Catalog   *handler.CatalogHandler
	Tasks     *handler.AnalysisTaskHandler
}

// SetupRouter builds the gin engine
func SetupRouter(cfg *config.Config, logger *slog.Logger, h Handlers) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(cors(cfg.CorsOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Crime LISA API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	{
		api.GET("/periods", h.Lisa.GetPeriods)
		api.GET("/crime-types", h.Catalog.GetCrimeTypes)
		api.GET("/lisa", h.Lisa.GetLisa)
		api.GET("/moran", h.Lisa.GetMoran)
		api.GET("/transitions", h.Lisa.GetTransitions)
		api.GET("/variation", h.Variation.GetVariation)

		tasks := api.Group("/tasks")
		if cfg.JWTSecret != "" {
			tasks.Use(middleware.JWTAuth(cfg.JWTSecret))
		}
		{
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("", h.Tasks.ListTasks)
			tasks.GET("/:id", h.Tasks.GetTask)
		}
	}

	return r
}

// cors allows the configured origins; "*" allows any
func cors(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(origins, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
