package api

import (
	"voicecore/internal/auth"
	"voicecore/pkg/logger"
	"voicecore/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up every route the core exposes.
func SetupRoutes(handler *Handler, authService *auth.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger.SetGinOutput()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(middleware.CompressionMiddleware())

	transcribeLimiter := middleware.NewRateLimiter(handler.config.RateLimitPerMinute)

	router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowOrigin := "*"
		if handler.config.IsProduction() && len(handler.config.AllowedOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range handler.config.AllowedOrigins {
				if origin == allowed {
					allowOrigin = origin
					break
				}
			}
		} else if origin != "" {
			allowOrigin = origin
		}

		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", handler.Metrics)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authService))
	{
		audio := v1.Group("/audio")
		{
			audio.POST("", transcribeLimiter.TranscribeRateLimit(), handler.RegisterAudio)
			audio.GET("", handler.ListAudio)
			audio.GET("/:file_id", handler.GetAudio)
			audio.DELETE("/:file_id", handler.DeleteAudio)

			uploads := audio.Group("/upload")
			uploads.Use(middleware.NoCompressionMiddleware())
			uploads.POST("", transcribeLimiter.TranscribeRateLimit(), handler.UploadAudio)
		}

		v1.GET("/jobs", handler.ListJobs)
		v1.GET("/transcripts", handler.ListTranscripts)

		summaries := v1.Group("/summaries")
		{
			summaries.GET("", handler.ListSummaries)
			summaries.GET("/export", handler.ExportSummaries)
			summaries.GET("/:date", handler.GetSummaryByDate)
			summaries.DELETE("/:id", handler.DeleteSummary)
		}

		prefs := v1.Group("/prefs")
		{
			prefs.GET("", handler.GetPrefs)
			prefs.PUT("", handler.UpdatePrefs)
		}

		v1.GET("/key", handler.GetKey)
		v1.GET("/credit", handler.GetCredit)
		v1.GET("/costs", handler.GetCosts)
		v1.GET("/presign", handler.Presign)
	}

	return router
}
