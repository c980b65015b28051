package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studyloop/studyloop-backend/internal/handlers"
	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/utils"
)

type RouterConfig struct {
	ServiceName         string
	PrincipalMiddleware *middleware.PrincipalMiddleware
	TopicHandler        *handlers.TopicHandler
	IngestHandler       *handlers.IngestHandler
	GenerationHandler   *handlers.GenerationHandler
	ReviewHandler       *handlers.ReviewHandler
	EventsHandler       *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.PrincipalHeader},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.PrincipalMiddleware.RequirePrincipal())
	{
		// Topics
		api.POST("/topics", cfg.TopicHandler.CreateTopic)
		api.GET("/topics", cfg.TopicHandler.ListTopics)
		api.GET("/topics/:id", cfg.TopicHandler.GetTopic)
		api.DELETE("/topics/:id", cfg.TopicHandler.DeleteTopic)
		api.GET("/topics/:id/history", cfg.TopicHandler.GetHistory)
		api.GET("/topics/:id/sources", cfg.TopicHandler.GetSourceStats)

		// Ingestion
		api.POST("/topics/:id/sources", cfg.IngestHandler.IngestSources)
		api.DELETE("/topics/:id/sources", cfg.IngestHandler.DeleteSources)
		api.GET("/topics/:id/sources/:sourceId/download", cfg.IngestHandler.DownloadSource)

		// Generation
		api.POST("/topics/:id/generations", cfg.GenerationHandler.Generate)

		// Review
		api.PATCH("/questions/:id/saved", cfg.ReviewHandler.SetSaved)
		api.POST("/questions/:id/review", cfg.ReviewHandler.RecordReview)
		api.GET("/review/due", cfg.ReviewHandler.DueForReview)

		// Progress events
		api.GET("/events/stream", cfg.EventsHandler.Stream)
	}

	return router
}
